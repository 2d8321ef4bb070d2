package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/internal/metrics"
)

const (
	fraudHost = "ipqs.example.com"
	leadHost  = "leads.example.com"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("IncrementRequests", func() {
		It("should count every received request", func() {
			m.IncrementRequests()
			m.IncrementRequests()

			Expect(m.Snapshot(40).TotalRequests).To(Equal(int64(2)))
		})
	})

	Describe("RecordRejection", func() {
		It("should count rejections by reason", func() {
			m.RecordRejection("validation")
			m.RecordRejection("validation")
			m.RecordRejection("no_destination")

			snap := m.Snapshot(40)
			Expect(snap.Rejected).To(HaveKeyWithValue("validation", int64(2)))
			Expect(snap.Rejected).To(HaveKeyWithValue("no_destination", int64(1)))
		})
	})

	Describe("RecordSelection", func() {
		It("should track selections per destination", func() {
			m.RecordSelection(fraudHost)
			m.RecordSelection(fraudHost)
			m.RecordSelection(leadHost)

			snap := m.Snapshot(40)
			Expect(snap.Destinations[fraudHost].Selections).To(Equal(int64(2)))
			Expect(snap.Destinations[leadHost].Selections).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time, status code and verdict", func() {
			m.RecordResponse(fraudHost, 100*time.Millisecond, 200, true)
			m.RecordResponse(fraudHost, 200*time.Millisecond, 200, false)

			dest := m.Snapshot(40).Destinations[fraudHost]
			Expect(dest.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(dest.StatusCodes[200]).To(Equal(int64(2)))
			Expect(dest.Successes).To(Equal(int64(1)))
			Expect(dest.Failures).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse(fraudHost, time.Duration(i)*time.Millisecond, 200, true)
			}

			dest := m.Snapshot(40).Destinations[fraudHost]
			Expect(dest.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(dest.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(dest.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored response times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse(fraudHost, time.Duration(i)*time.Millisecond, 200, true)
			}

			dest := m.Snapshot(40).Destinations[fraudHost]
			Expect(dest.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
			Expect(dest.Successes).To(Equal(int64(1500)))
		})
	})

	Describe("UpdatePauseStatus", func() {
		It("should track pause changes", func() {
			m.UpdatePauseStatus(fraudHost, true)
			Expect(m.Snapshot(40).Destinations[fraudHost].Paused).To(BeTrue())

			m.UpdatePauseStatus(fraudHost, false)
			Expect(m.Snapshot(40).Destinations[fraudHost].Paused).To(BeFalse())
		})
	})

	Describe("Snapshot", func() {
		It("should report the split percent it was given", func() {
			Expect(m.Snapshot(75).SplitPercent).To(Equal(75))
		})

		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)
			Expect(m.Snapshot(40).Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot(40)
			Expect(snap.TotalRequests).To(Equal(int64(0)))
			Expect(snap.Destinations).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.RecordResponse(fraudHost, time.Millisecond, 200, true)
			snap1 := m.Snapshot(40)
			m.RecordResponse(fraudHost, time.Millisecond, 200, true)

			Expect(snap1.Destinations[fraudHost].StatusCodes[200]).To(Equal(int64(1)))
		})
	})
})
