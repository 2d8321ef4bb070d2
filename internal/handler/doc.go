// Package handler implements the HTTP endpoints of the proxy: lead
// submission, circuit breaker administration under /cache, and the /ping
// connectivity check. It also provides the access middleware that guards
// them.
package handler
