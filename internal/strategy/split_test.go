package strategy_test

import (
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rmiatl/leadcall-proxy/internal/strategy"
)

var _ = Describe("PercentSplitter", func() {
	var splitter strategy.Splitter

	BeforeEach(func() {
		splitter = strategy.NewPercentSplitter()
	})

	Describe("edge percentages", func() {
		It("should always return false at zero or below", func() {
			for _, p := range []int{0, -5} {
				for i := 0; i < 10; i++ {
					Expect(splitter.Decide(p)).To(BeFalse())
				}
			}
			Expect(splitter.Counter()).To(Equal(int64(0)))
		})

		It("should always return true at 100 or above", func() {
			for _, p := range []int{100, 150} {
				for i := 0; i < 10; i++ {
					Expect(splitter.Decide(p)).To(BeTrue())
				}
			}
			Expect(splitter.Counter()).To(Equal(int64(0)))
		})

		It("should reset the counter when an edge percentage is used", func() {
			splitter.Decide(30)
			Expect(splitter.Counter()).To(Equal(int64(1)))
			splitter.Decide(0)
			Expect(splitter.Counter()).To(Equal(int64(0)))
		})
	})

	Describe("a 75 percent split", func() {
		It("should send every fourth request to the secondary destination", func() {
			Expect(splitter.Decide(75)).To(BeTrue())
			Expect(splitter.Counter()).To(Equal(int64(1)))
			Expect(splitter.Decide(75)).To(BeTrue())
			Expect(splitter.Decide(75)).To(BeTrue())
			Expect(splitter.Counter()).To(Equal(int64(3)))

			Expect(splitter.Decide(75)).To(BeFalse())
			Expect(splitter.Counter()).To(Equal(int64(0)))

			Expect(splitter.Decide(75)).To(BeTrue())
		})
	})

	Describe("a 25 percent split", func() {
		It("should send every fourth request to the primary destination", func() {
			results := []bool{}
			for i := 0; i < 8; i++ {
				results = append(results, splitter.Decide(25))
			}
			Expect(results).To(Equal([]bool{false, false, false, true, false, false, false, true}))
		})
	})

	DescribeTable("long-run proportion",
		func(percent int, expected float64) {
			const n = 1200
			primary := 0
			for i := 0; i < n; i++ {
				if splitter.Decide(percent) {
					primary++
				}
			}
			Expect(float64(primary) / n).To(BeNumerically("~", expected, 0.001))
		},
		Entry("10 percent", 10, 0.10),
		Entry("20 percent", 20, 0.20),
		Entry("25 percent", 25, 0.25),
		Entry("50 percent", 50, 0.50),
		Entry("75 percent", 75, 0.75),
		Entry("80 percent", 80, 0.80),
		Entry("90 percent", 90, 0.90),
		// 100/30 truncates to a bucket of 3, so 30% converges on one in three.
		Entry("30 percent", 30, 1.0/3.0),
		// 100/(100-70) truncates to 3, so 70% converges on two in three.
		Entry("70 percent", 70, 2.0/3.0),
	)

	Describe("concurrent decisions", func() {
		It("should not lose counter increments", func() {
			const goroutines = 40
			const perGoroutine = 100

			var (
				wg      sync.WaitGroup
				mutex   sync.Mutex
				primary int
			)
			wg.Add(goroutines)
			for i := 0; i < goroutines; i++ {
				go func() {
					defer wg.Done()
					local := 0
					for j := 0; j < perGoroutine; j++ {
						if splitter.Decide(50) {
							local++
						}
					}
					mutex.Lock()
					primary += local
					mutex.Unlock()
				}()
			}
			wg.Wait()

			Expect(primary).To(Equal(goroutines * perGoroutine / 2))
		})
	})
})
