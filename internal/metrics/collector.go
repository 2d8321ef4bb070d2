package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventRequestReceived     EventType = "request_received"
	EventDestinationSelected EventType = "destination_selected"
	EventResponseCompleted   EventType = "response_completed"
	EventRequestRejected     EventType = "request_rejected"
	EventPauseChanged        EventType = "pause_changed"
)

type MetricEvent struct {
	Type        EventType
	Timestamp   time.Time
	Destination string
	Duration    time.Duration
	StatusCode  int
	Success     bool
	Paused      bool
	Reason      string
}

type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues an event, dropping it when the buffer is full.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, event dropped", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests()

	case EventDestinationSelected:
		c.metrics.RecordSelection(event.Destination)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Destination, event.Duration, event.StatusCode, event.Success)

	case EventRequestRejected:
		c.metrics.RecordRejection(event.Reason)

	case EventPauseChanged:
		c.metrics.UpdatePauseStatus(event.Destination, event.Paused)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(splitPercent int) Snapshot {
	return c.metrics.Snapshot(splitPercent)
}
