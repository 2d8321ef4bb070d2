package healthcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 5 * time.Second

// Result is the outcome of checking one URL.
type Result struct {
	URL    string `json:"url"`
	Pass   bool   `json:"pass"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Origin reduces raw to scheme://host[:port]. Values that do not parse as an
// absolute URL are returned unchanged.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}

// Check sends a HEAD request to target. Azure App Service hosts do not answer
// HEAD on their root, so those get a GET on /ping/ instead.
func Check(ctx context.Context, client *http.Client, target string) Result {
	result := Result{URL: target}

	method := http.MethodHead
	checkURL := target
	if strings.Contains(strings.ToLower(target), ".azurewebsites.net") {
		method = http.MethodGet
		checkURL = strings.TrimRight(target, "/") + "/ping/"
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, checkURL, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	res, err := client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	result.Status = res.StatusCode
	result.Pass = res.StatusCode >= 200 && res.StatusCode <= 299
	if !result.Pass {
		result.Error = fmt.Sprintf("unexpected status %d", res.StatusCode)
	}
	return result
}

// Probe checks the origin of every URL concurrently. Results keep the order
// of urls; empty entries are skipped.
func Probe(ctx context.Context, client *http.Client, urls []string) []Result {
	targets := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			targets = append(targets, Origin(u))
		}
	}

	results := make([]Result, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Check(ctx, client, target)
		}()
	}
	wg.Wait()

	return results
}

// Monitor periodically checks a fixed set of targets and logs transitions.
type Monitor struct {
	client   *http.Client
	targets  []string
	interval time.Duration
	logger   *slog.Logger

	mutex  sync.RWMutex
	status map[string]bool
}

func NewMonitor(client *http.Client, targets []string, interval time.Duration, logger *slog.Logger) *Monitor {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	origins := make([]string, 0, len(targets))
	for _, t := range targets {
		origins = append(origins, Origin(t))
	}

	return &Monitor{
		client:   client,
		targets:  origins,
		interval: interval,
		logger:   logger,
		status:   make(map[string]bool, len(origins)),
	}
}

// Run checks every target on each tick until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health check stopped")
			return

		case <-ticker.C:
			for _, r := range Probe(ctx, m.client, m.targets) {
				m.update(r)
			}
		}
	}
}

func (m *Monitor) update(r Result) {
	m.mutex.Lock()
	prev, seen := m.status[r.URL]
	m.status[r.URL] = r.Pass
	m.mutex.Unlock()

	if seen && prev == r.Pass {
		return
	}

	if r.Pass {
		m.logger.Info("Destination is up", slog.String("url", r.URL))
	} else {
		m.logger.Warn("Destination is down",
			slog.String("url", r.URL),
			slog.String("error", r.Error))
	}
}

// Status returns the last known reachability of every checked target.
func (m *Monitor) Status() map[string]bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make(map[string]bool, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}
