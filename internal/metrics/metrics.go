package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	rejections    map[string]int64
	selections    map[string]int64
	successes     map[string]int64
	failures      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	pauseStatus   map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                         `json:"total_requests"`
	Rejected      map[string]int64              `json:"rejected"`
	Uptime        time.Duration                 `json:"uptime"`
	SplitPercent  int                           `json:"split_percent"`
	Destinations  map[string]DestinationMetrics `json:"destinations"`
}

type DestinationMetrics struct {
	Selections  int64         `json:"selections"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	Paused      bool          `json:"paused"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) RecordRejection(reason string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rejections[reason]++
}

func (m *Metrics) RecordSelection(destination string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[destination]++
}

func (m *Metrics) RecordResponse(destination string, duration time.Duration, statusCode int, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.successes[destination]++
	} else {
		m.failures[destination]++
	}

	m.responseTimes[destination] = append(m.responseTimes[destination], duration)
	if len(m.responseTimes[destination]) > maxSamples {
		m.responseTimes[destination] = m.responseTimes[destination][1:]
	}

	if m.statusCodes[destination] == nil {
		m.statusCodes[destination] = make(map[int]int64)
	}
	m.statusCodes[destination][statusCode]++
}

func (m *Metrics) UpdatePauseStatus(destination string, paused bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pauseStatus[destination] = paused
}

func (m *Metrics) Snapshot(splitPercent int) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.requests,
		Rejected:      make(map[string]int64, len(m.rejections)),
		Uptime:        time.Since(m.startTime),
		SplitPercent:  splitPercent,
		Destinations:  make(map[string]DestinationMetrics),
	}
	for reason, n := range m.rejections {
		snap.Rejected[reason] = n
	}

	// Collect all destinations seen by any counter
	all := make(map[string]bool)
	for _, set := range []map[string]int64{m.selections, m.successes, m.failures} {
		for d := range set {
			all[d] = true
		}
	}
	for d := range m.pauseStatus {
		all[d] = true
	}

	for d := range all {
		dm := DestinationMetrics{
			Selections:  m.selections[d],
			Successes:   m.successes[d],
			Failures:    m.failures[d],
			Paused:      m.pauseStatus[d],
			StatusCodes: make(map[int]int64, len(m.statusCodes[d])),
		}
		for code, n := range m.statusCodes[d] {
			dm.StatusCodes[code] = n
		}

		durations := m.responseTimes[d]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			dm.AvgResponse = average(sorted)
			dm.P50Response = percentile(sorted, 0.50)
			dm.P95Response = percentile(sorted, 0.95)
			dm.P99Response = percentile(sorted, 0.99)
		}

		snap.Destinations[d] = dm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		rejections:    make(map[string]int64),
		selections:    make(map[string]int64),
		successes:     make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		pauseStatus:   make(map[string]bool),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
