// Package circuitbreaker tracks upstream errors per host and decides when a
// host is paused.
//
// Each host has at most one ErrorState, created on its first failure and kept
// in an expiring cache for ResetPause after that failure. A host is paused
// once its error count reaches MaxRequestErrorCount and stays paused until the
// entry is cleared or expires; successes do not lower the count. There is no
// half-open probing: expiry is the only automatic way back.
//
//	store := circuitbreaker.NewStore(circuitbreaker.Settings{
//	    MaxRequestErrorCount: 3,
//	    ResetPause:           15 * time.Minute,
//	}, logger, circuitbreaker.WithNotifier(slack))
//
//	if !store.IsPaused(ctx, "ipqs.example.com") {
//	    // send...
//	    store.RecordOutcome(ctx, circuitbreaker.Outcome{Host: "ipqs.example.com", Success: ok})
//	}
//
// Pause and resume transitions are announced through a notify.Notifier. A
// resume caused by expiry is announced lazily, on the next IsPaused call for
// that host.
package circuitbreaker
