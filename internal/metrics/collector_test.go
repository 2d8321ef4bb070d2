package metrics_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("Start and event processing", func() {
		It("should process EventRequestReceived", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})

			Eventually(func() int64 {
				return collector.Snapshot(40).TotalRequests
			}).Should(Equal(int64(1)))
		})

		It("should process EventDestinationSelected", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventDestinationSelected, Destination: fraudHost})

			Eventually(func() int64 {
				return collector.Snapshot(40).Destinations[fraudHost].Selections
			}).Should(Equal(int64(1)))
		})

		It("should process EventResponseCompleted", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:        metrics.EventResponseCompleted,
				Destination: leadHost,
				Duration:    100 * time.Millisecond,
				StatusCode:  200,
				Success:     true,
			})

			Eventually(func() int64 {
				return collector.Snapshot(40).Destinations[leadHost].Successes
			}).Should(Equal(int64(1)))
			dest := collector.Snapshot(40).Destinations[leadHost]
			Expect(dest.AvgResponse).To(Equal(100 * time.Millisecond))
			Expect(dest.StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should process EventRequestRejected", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestRejected, Reason: "validation"})

			Eventually(func() map[string]int64 {
				return collector.Snapshot(40).Rejected
			}).Should(HaveKeyWithValue("validation", int64(1)))
		})

		It("should process EventPauseChanged", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventPauseChanged, Destination: fraudHost, Paused: true})

			Eventually(func() bool {
				return collector.Snapshot(40).Destinations[fraudHost].Paused
			}).Should(BeTrue())
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.EventChannel() <- metrics.MetricEvent{Type: metrics.EventRequestReceived}
			}
			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return collector.Snapshot(40).TotalRequests
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should drop events when the buffer is full", func() {
			small := metrics.NewCollector(1, log)
			small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})
			small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})

			small.Start(ctx)
			cancel()
			Eventually(func() int64 {
				return small.Snapshot(40).TotalRequests
			}).Should(Equal(int64(1)))
		})

		It("should be a no-op on a nil collector", func() {
			var c *metrics.Collector
			Expect(func() { c.Emit(metrics.MetricEvent{}) }).NotTo(Panic())
		})
	})

	Describe("Handler", func() {
		It("should serve the snapshot as JSON", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})
			Eventually(func() int64 {
				return collector.Snapshot(40).TotalRequests
			}).Should(Equal(int64(1)))

			w := httptest.NewRecorder()
			collector.Handler(func() int { return 60 })(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.SplitPercent).To(Equal(60))
			Expect(snap.TotalRequests).To(Equal(int64(1)))
		})
	})
})
