package circuitbreaker

import (
	"time"

	"github.com/rmiatl/leadcall-proxy/internal/notify"
)

// State is the breaker state of one upstream host.
type State int

const (
	StateActive State = iota // Traffic flows
	StatePaused              // Traffic suspended until cleared or expired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// ErrorState tracks the errors of one upstream host since its entry was
// created. Values returned by the Store are copies.
type ErrorState struct {
	Host                 string
	RequestHost          string
	StatusURL            string
	ErrorCount           int
	LastErrorAt          time.Time
	LastResponseSeconds  float64
	SplitCounterSnapshot int64

	maxErrors  int
	resetPause time.Duration
}

// Paused reports whether the host has reached the error limit.
func (e ErrorState) Paused() bool {
	return e.maxErrors > 0 && e.ErrorCount >= e.maxErrors
}

// State maps Paused onto a State.
func (e ErrorState) State() State {
	if e.Paused() {
		return StatePaused
	}
	return StateActive
}

// ErrorsRemaining is the number of further errors before the host pauses.
func (e ErrorState) ErrorsRemaining() int {
	return e.maxErrors - e.ErrorCount
}

// ResumeAt is when the host is expected to resume on its own.
func (e ErrorState) ResumeAt() time.Time {
	return e.LastErrorAt.Add(e.resetPause)
}

// LastErrorAge is how long ago the last error was recorded.
func (e ErrorState) LastErrorAge(now time.Time) time.Duration {
	return now.Sub(e.LastErrorAt)
}

// ResumeIn is the time left until ResumeAt.
func (e ErrorState) ResumeIn(now time.Time) time.Duration {
	return e.ResumeAt().Sub(now)
}

func (e ErrorState) event(kind notify.Kind, now time.Time) notify.Event {
	return notify.Event{
		Kind:         kind,
		Host:         e.Host,
		RequestHost:  e.RequestHost,
		LastErrorAge: e.LastErrorAge(now),
		ResumeIn:     e.ResumeIn(now),
		TotalErrors:  e.ErrorCount,
		StatusURL:    e.StatusURL,
	}
}

// StateView is the JSON shape of an ErrorState at a point in time.
type StateView struct {
	ProxyHost       string `json:"proxy_host"`
	RequestHost     string `json:"request_host"`
	PrevError       string `json:"prev_error"`
	ErrorCount      int    `json:"error_count"`
	ErrorsRemaining int    `json:"errors_remaining"`
	RespSeconds     string `json:"resp_seconds"`
	ResumeTime      string `json:"resume_time"`
	SplitCounter    int64  `json:"split_counter"`
	Paused          bool   `json:"paused"`
	State           string `json:"state"`
}

// View renders the state relative to now.
func (e ErrorState) View(now time.Time) StateView {
	return StateView{
		ProxyHost:       e.Host,
		RequestHost:     e.RequestHost,
		PrevError:       notify.FormatDuration(e.LastErrorAge(now)),
		ErrorCount:      e.ErrorCount,
		ErrorsRemaining: e.ErrorsRemaining(),
		RespSeconds:     formatSeconds(e.LastResponseSeconds),
		ResumeTime:      notify.FormatDuration(e.ResumeIn(now)),
		SplitCounter:    e.SplitCounterSnapshot,
		Paused:          e.Paused(),
		State:           e.State().String(),
	}
}
