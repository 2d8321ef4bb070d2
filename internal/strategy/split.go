package strategy

import "sync/atomic"

const denominator = 100

// percentSplitter routes a fixed share of requests to the primary destination
// by counting requests into buckets of modValue.
type percentSplitter struct {
	counter atomic.Int64
}

// NewPercentSplitter creates a splitter with its own request counter.
func NewPercentSplitter() Splitter {
	return &percentSplitter{}
}

// Decide reports whether the current request goes to the primary destination.
//
// For percentages above 50 the periodic hit marks the rare secondary request,
// so the result is inverted; this keeps modValue an integer bucket size on
// both halves of the range.
func (s *percentSplitter) Decide(splitPercent int) bool {
	if splitPercent <= 0 {
		s.counter.Store(0)
		return false
	}
	if splitPercent >= denominator {
		s.counter.Store(0)
		return true
	}

	var modValue int64
	if splitPercent > 50 {
		modValue = int64(denominator / (denominator - splitPercent))
	} else {
		modValue = int64(denominator / splitPercent)
	}

	var hit bool
	for {
		current := s.counter.Load()
		next := current + 1
		hit = next%modValue == 0

		stored := next
		if hit {
			stored = 0
		}
		if s.counter.CompareAndSwap(current, stored) {
			break
		}
	}

	if splitPercent > 50 {
		return !hit
	}
	return hit
}

func (s *percentSplitter) Counter() int64 {
	return s.counter.Load()
}
