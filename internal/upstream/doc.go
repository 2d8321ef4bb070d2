// Package upstream describes the two verification services the gateway
// forwards to and sends the outbound calls.
//
// A Destination is a static profile loaded from configuration. Its Kind is a
// value tag, so destinations are compared by what they are rather than by
// pointer identity. Client.Send performs a single attempt bounded by the
// destination timeout; redirects are returned to the caller instead of being
// followed.
package upstream
