package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rmiatl/leadcall-proxy/internal/dispatch"
)

const maxPayloadBytes = 1 << 20

// Dispatcher handles one lead submission.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

// ProxyHandler turns a POST into a dispatch.Request and writes the result.
type ProxyHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewProxyHandler(d Dispatcher, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{dispatcher: d, logger: logger}
}

func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "payload could not be read")
		return
	}

	req := dispatch.Request{
		Payload:     body,
		RequestHost: requestHost(r),
		StatusURL:   statusURL(r),
	}
	applyFlags(&req, r.URL.Query())

	res, err := h.dispatcher.Dispatch(r.Context(), req)

	var verr *dispatch.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
		return
	case errors.Is(err, dispatch.ErrNoDestinationAvailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.Error("Dispatch failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "unexpected error")
		return
	}

	w.Header().Set("X-Proxy-Host", res.Host)
	w.Header().Set("X-Request-ID", res.RequestID)

	if res.StatusCode == http.StatusNoContent || len(res.Body) == 0 {
		w.WriteHeader(res.StatusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	_, _ = w.Write(res.Body)
}

var passThruKeys = []string{"test", "testonly", "testing", "bypass", "passthru"}

var quietKeys = []string{"slack", "alert", "notify"}

// applyFlags reads the admin overrides from the query string:
// split=<n>, code=<status>, test|testonly|testing|bypass|passthru=true and
// slack|alert|notify=false.
func applyFlags(req *dispatch.Request, q url.Values) {
	if n, err := strconv.Atoi(q.Get("split")); err == nil {
		req.SplitPercent = &n
	}
	if n, err := strconv.Atoi(q.Get("code")); err == nil && n > 0 {
		req.SimulateStatus = &n
	}
	for _, key := range passThruKeys {
		if strings.EqualFold(q.Get(key), "true") {
			req.PassThru = true
		}
	}
	for _, key := range quietKeys {
		if strings.EqualFold(q.Get(key), "false") {
			req.SuppressNotifications = true
		}
	}
}

func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func statusURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + "/cache/status/"
}
