// Package httpserver wraps net/http.Server with address validation, request
// timeouts suited to a proxy that waits on slow upstreams, and graceful
// shutdown.
package httpserver
