// Package notify delivers breaker transitions and operational failures to
// people.
//
// Every Notifier is fire-and-forget: Notify returns immediately and delivery
// problems are logged, never returned. The Slack notifier posts an incoming
// webhook message per event and throttles itself so a flapping upstream cannot
// flood the alert channel.
package notify
