package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rmiatl/leadcall-proxy/internal/circuitbreaker"
)

// BreakerStore is the part of the circuit breaker store the admin routes use.
type BreakerStore interface {
	Settings() circuitbreaker.Settings
	Views() []circuitbreaker.StateView
	Clear(ctx context.Context, host string) bool
	ClearAll(ctx context.Context) int
}

// CacheHandler serves GET /cache/{method} for info, details, status and clear.
type CacheHandler struct {
	store  BreakerStore
	logger *slog.Logger
}

func NewCacheHandler(store BreakerStore, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{store: store, logger: logger}
}

type cacheStatus struct {
	MaxRequestErrorCount int                        `json:"max_request_error_count"`
	ResetPauseMinutes    float64                    `json:"reset_pause_minutes"`
	Tracked              int                        `json:"tracked"`
	Paused               []string                   `json:"paused"`
	Hosts                []circuitbreaker.StateView `json:"hosts"`
}

func (h *CacheHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.ToLower(chi.URLParam(r, "method")) {
	case "info", "details":
		views := h.store.Views()
		if len(views) == 0 {
			http.Redirect(w, r, "/cache/status/", http.StatusFound)
			return
		}
		writeJSON(w, http.StatusOK, views)

	case "status":
		writeJSON(w, http.StatusOK, h.status())

	case "clear":
		if host := r.URL.Query().Get("host"); host != "" {
			cleared := h.store.Clear(r.Context(), hostOf(host))
			h.logger.Info("Cleared proxy host", slog.String("proxy_host", hostOf(host)), slog.Bool("found", cleared))
		} else {
			n := h.store.ClearAll(r.Context())
			h.logger.Info("Cleared all proxy hosts", slog.Int("count", n))
		}
		http.Redirect(w, r, "/cache/info/", http.StatusFound)

	default:
		writeError(w, http.StatusNotFound, "unknown cache method")
	}
}

func (h *CacheHandler) status() cacheStatus {
	settings := h.store.Settings()
	views := h.store.Views()

	status := cacheStatus{
		MaxRequestErrorCount: settings.MaxRequestErrorCount,
		ResetPauseMinutes:    settings.ResetPause.Minutes(),
		Tracked:              len(views),
		Paused:               []string{},
		Hosts:                views,
	}
	for _, v := range views {
		if v.Paused {
			status.Paused = append(status.Paused, v.ProxyHost)
		}
	}
	return status
}

// hostOf accepts a bare host or a URL and returns the host name.
func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Hostname()
}
