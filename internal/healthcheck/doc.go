// Package healthcheck probes the reachability of the services the proxy
// depends on.
//
// Probe runs a one-off check of a list of URLs, reduced to their origin,
// and backs the /ping?all admin report. Monitor repeats the check on a
// ticker for the destination services and logs when one goes down or comes
// back up. Neither affects routing; only the circuit breaker pauses traffic.
package healthcheck
