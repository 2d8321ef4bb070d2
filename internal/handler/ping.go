package handler

import (
	"context"
	"net/http"

	"github.com/rmiatl/leadcall-proxy/internal/healthcheck"
)

// Prober checks the connectivity of the services the proxy depends on.
type Prober func(ctx context.Context) []healthcheck.Result

// Monitored returns the last known reachability of the destinations.
type Monitored func() map[string]bool

type pingReport struct {
	Results   []healthcheck.Result `json:"results"`
	Monitored map[string]bool      `json:"monitored,omitempty"`
}

// PingHandler answers GET /ping. Admins may add ?all (or ?test) to run the
// connectivity probe and see the background monitor's view.
type PingHandler struct {
	access    *Access
	probe     Prober
	monitored Monitored
}

func NewPingHandler(access *Access, probe Prober, monitored Monitored) *PingHandler {
	return &PingHandler{access: access, probe: probe, monitored: monitored}
}

func (h *PingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if (q.Has("all") || q.Has("test")) && h.probe != nil && h.access.IsAdmin(r) {
		report := pingReport{Results: h.probe(r.Context())}
		if h.monitored != nil {
			report.Monitored = h.monitored()
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}
