package circuitbreaker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rmiatl/leadcall-proxy/internal/cache"
	"github.com/rmiatl/leadcall-proxy/internal/notify"
)

// Settings holds the breaker thresholds.
type Settings struct {
	MaxRequestErrorCount int
	ResetPause           time.Duration
}

// Outcome is the result of one dispatched request.
type Outcome struct {
	Host            string
	ResponseSeconds float64
	Success         bool

	// Context copied onto a freshly created entry and refreshed on updates.
	RequestHost  string
	StatusURL    string
	SplitCounter int64

	// Quiet suppresses pause notifications for this outcome only.
	Quiet bool
}

// Store keeps one ErrorState per upstream host in an expiring cache.
//
// All reads and writes of ErrorState happen under one mutex. Notifications
// are collected while locked and delivered after the lock is released.
type Store struct {
	mutex    sync.Mutex
	settings Settings
	states   *cache.Cache[*ErrorState]
	// hosts whose pause was announced and whose resume is still owed
	announced map[string]struct{}
	notifier  notify.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for the store and its cache.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithNotifier sets where pause and resume events go.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// NewStore creates an empty store.
func NewStore(settings Settings, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		settings:  settings,
		announced: make(map[string]struct{}),
		notifier:  notify.Nop{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.states = cache.New[*ErrorState](cache.WithClock(s.now))
	return s
}

// Start purges expired entries in the background until ctx is done.
func (s *Store) Start(ctx context.Context, interval time.Duration) {
	s.states.StartJanitor(ctx, interval)
}

// Settings returns the thresholds the store was built with.
func (s *Store) Settings() Settings {
	return s.settings
}

func hostKey(host string) string {
	return strings.ToLower(strings.TrimSpace(host))
}

// RecordOutcome folds one outcome into the host's state.
//
// A success only refreshes the response time of an existing entry; it never
// lowers the error count. A failure increments the count, creating the entry
// on the first failure. When a failure lands the count on a multiple of
// MaxRequestErrorCount the host is announced as paused.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) ErrorState {
	key := hostKey(o.Host)
	now := s.now()

	var pending []notify.Event

	s.mutex.Lock()
	state, ok := s.states.Get(key)
	switch {
	case ok:
		state.LastResponseSeconds = o.ResponseSeconds
		state.SplitCounterSnapshot = o.SplitCounter
		if o.RequestHost != "" {
			state.RequestHost = o.RequestHost
		}
		if o.StatusURL != "" {
			state.StatusURL = o.StatusURL
		}
		if !o.Success {
			state.ErrorCount++
			state.LastErrorAt = now
		}
		s.states.Set(key, state, s.settings.ResetPause)
	case o.Success:
		s.mutex.Unlock()
		return ErrorState{Host: key, maxErrors: s.settings.MaxRequestErrorCount, resetPause: s.settings.ResetPause}
	default:
		state = s.getOrCreateLocked(key, o, now)
	}

	if !o.Success && s.crossedLimit(state.ErrorCount) {
		if o.Quiet {
			s.logger.Info("Proxy host paused, notification suppressed",
				slog.String("proxy_host", key),
				slog.Int("error_count", state.ErrorCount))
		} else {
			s.announced[key] = struct{}{}
			pending = append(pending, state.event(notify.KindPaused, now))
		}
	}
	snapshot := *state
	s.mutex.Unlock()

	s.deliver(ctx, pending)
	return snapshot
}

// GetOrCreate returns the host's state, seeding it with one error when the
// host has no entry yet.
func (s *Store) GetOrCreate(o Outcome) ErrorState {
	key := hostKey(o.Host)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if state, ok := s.states.Get(key); ok {
		return *state
	}
	return *s.getOrCreateLocked(key, o, s.now())
}

func (s *Store) getOrCreateLocked(key string, o Outcome, now time.Time) *ErrorState {
	state := &ErrorState{
		Host:                 key,
		RequestHost:          o.RequestHost,
		StatusURL:            o.StatusURL,
		ErrorCount:           1,
		LastErrorAt:          now,
		LastResponseSeconds:  o.ResponseSeconds,
		SplitCounterSnapshot: o.SplitCounter,
		maxErrors:            s.settings.MaxRequestErrorCount,
		resetPause:           s.settings.ResetPause,
	}
	s.states.Set(key, state, s.settings.ResetPause)

	s.logger.Debug("Tracking proxy host errors", slog.String("proxy_host", key))
	return state
}

func (s *Store) crossedLimit(count int) bool {
	max := s.settings.MaxRequestErrorCount
	return max > 0 && count > 0 && count%max == 0
}

// IsPaused reports whether the host is paused. A host without an entry is
// never paused. When a host announced as paused is found active again (its
// entry expired), the owed resume notification is sent.
func (s *Store) IsPaused(ctx context.Context, host string) bool {
	key := hostKey(host)
	if key == "" {
		return false
	}

	var (
		pending []notify.Event
		paused  bool
	)

	s.mutex.Lock()
	state, ok := s.states.Get(key)
	_, owed := s.announced[key]
	switch {
	case ok:
		paused = state.Paused()
		if owed && !paused {
			delete(s.announced, key)
			pending = append(pending, state.event(notify.KindResumed, s.now()))
		}
	case owed:
		delete(s.announced, key)
		pending = append(pending, s.emptyState(key).event(notify.KindResumed, s.now()))
	}
	s.mutex.Unlock()

	s.deliver(ctx, pending)
	return paused
}

// Lookup returns a copy of the host's state, if it has one.
func (s *Store) Lookup(host string) (ErrorState, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, ok := s.states.Get(hostKey(host))
	if !ok {
		return ErrorState{}, false
	}
	return *state, true
}

// Clear drops the host's entry and reports whether there was anything to
// clear. A resume is announced when the host had been paused.
func (s *Store) Clear(ctx context.Context, host string) bool {
	key := hostKey(host)

	var pending []notify.Event

	s.mutex.Lock()
	state, ok := s.states.Remove(key)
	_, owed := s.announced[key]
	delete(s.announced, key)

	if (ok && state.Paused()) || owed {
		resumed := s.emptyState(key)
		if ok {
			resumed = *state
		}
		pending = append(pending, resumed.event(notify.KindResumed, s.now()))
	}
	s.mutex.Unlock()

	s.deliver(ctx, pending)
	return ok || owed
}

// ClearAll drops every entry, announces a resume for each host that had been
// paused, and returns how many entries were cleared.
func (s *Store) ClearAll(ctx context.Context) int {
	var pending []notify.Event

	s.mutex.Lock()
	now := s.now()
	items := s.states.Items()
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		s.states.Remove(item.Key)
		seen[item.Key] = struct{}{}

		_, owed := s.announced[item.Key]
		if item.Value.Paused() || owed {
			pending = append(pending, item.Value.event(notify.KindResumed, now))
		}
	}
	for key := range s.announced {
		if _, ok := seen[key]; !ok {
			pending = append(pending, s.emptyState(key).event(notify.KindResumed, now))
		}
	}
	s.announced = make(map[string]struct{})
	s.states.Purge()
	s.mutex.Unlock()

	s.deliver(ctx, pending)
	return len(items)
}

// States returns copies of every live entry sorted by host.
func (s *Store) States() []ErrorState {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items := s.states.Items()
	out := make([]ErrorState, 0, len(items))
	for _, item := range items {
		out = append(out, *item.Value)
	}
	return out
}

// Views renders every live entry relative to the store clock.
func (s *Store) Views() []StateView {
	now := s.now()
	states := s.States()
	views := make([]StateView, 0, len(states))
	for _, st := range states {
		views = append(views, st.View(now))
	}
	return views
}

func (s *Store) emptyState(key string) ErrorState {
	return ErrorState{
		Host:       key,
		maxErrors:  s.settings.MaxRequestErrorCount,
		resetPause: s.settings.ResetPause,
	}
}

func (s *Store) deliver(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		s.logger.Info(fmt.Sprintf("Proxy host %s", e.Kind),
			slog.String("proxy_host", e.Host),
			slog.Int("total_errors", e.TotalErrors))
		s.notifier.Notify(ctx, e)
	}
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", math.Round(v*1000)/1000)
}
