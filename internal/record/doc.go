// Package record stores enriched leads through the data queue service.
//
// Submission is fire-and-forget. Submit returns at once and the PUT runs in
// the background, so a slow or failing data queue never delays the caller.
// Non-2xx answers are reported to the notifier as failures.
package record
