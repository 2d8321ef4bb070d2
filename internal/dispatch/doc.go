// Package dispatch routes a lead submission to one of two verification
// services and does the bookkeeping around the call.
//
// A dispatch validates the payload, picks a destination (the splitter
// decides unless the fraud-score service is paused), forwards the payload
// with a proxy_host field added, classifies the answer, records the outcome
// in the circuit breaker store and submits the enriched record.
//
// Only a *ValidationError or ErrNoDestinationAvailable is returned to the
// caller. Upstream failures and timeouts are counted against the
// destination and answered with 204.
package dispatch
