package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Kind is the type of a notification event.
type Kind string

const (
	KindPaused  Kind = "paused"
	KindResumed Kind = "resumed"
	KindFailure Kind = "failure"
)

// Event describes something an operator should hear about.
type Event struct {
	Kind         Kind
	Host         string
	RequestHost  string
	LastErrorAge time.Duration
	ResumeIn     time.Duration
	TotalErrors  int
	StatusURL    string
	Message      string
}

// Notifier delivers events without blocking the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}

// Log writes events to a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, event Event) {
	attrs := []any{
		slog.String("kind", string(event.Kind)),
		slog.String("proxy_host", event.Host),
	}
	if event.RequestHost != "" {
		attrs = append(attrs, slog.String("request_host", event.RequestHost))
	}

	switch event.Kind {
	case KindPaused:
		attrs = append(attrs,
			slog.Int("total_errors", event.TotalErrors),
			slog.Duration("last_error", event.LastErrorAge),
			slog.Duration("resume_in", event.ResumeIn))
		l.logger.WarnContext(ctx, "Proxy host paused", attrs...)
	case KindResumed:
		l.logger.InfoContext(ctx, "Proxy host resumed", attrs...)
	default:
		attrs = append(attrs, slog.String("message", event.Message))
		l.logger.ErrorContext(ctx, "Proxy failure", attrs...)
	}
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// FormatDuration renders d as mm:ss.fff, or hh:mm:ss.fff from one hour up.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	h := int(d / time.Hour)
	m := int(d/time.Minute) % 60
	s := int(d/time.Second) % 60
	ms := int(d/time.Millisecond) % 1000

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}
