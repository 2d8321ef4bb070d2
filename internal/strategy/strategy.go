package strategy

// Splitter decides which of the two destinations handles a request.
// A true result selects the primary (fraud-score) destination.
type Splitter interface {
	Decide(splitPercent int) bool
	Counter() int64
}
