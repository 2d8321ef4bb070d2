package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the current snapshot as JSON. splitPercent is read on every
// request so the reported value follows the live configuration.
func (c *Collector) Handler(splitPercent func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot(splitPercent())

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
