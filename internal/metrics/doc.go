// Package metrics collects per-destination telemetry for the proxy.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Requests received and rejected
//   - Destination selections made by the splitter
//   - Upstream verdicts (successes and failures)
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution
//   - Pause state of each destination
//
// The collector runs in a dedicated goroutine. Producers send events with a
// non-blocking select, so a full buffer drops events instead of slowing the
// request path.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:        metrics.EventResponseCompleted,
//		Destination: "ipqs.example.com",
//		Duration:    150 * time.Millisecond,
//		StatusCode:  200,
//		Success:     true,
//	})
//
//	snapshot := collector.Snapshot(40)
//
// Pending events are drained when the context is cancelled.
package metrics
