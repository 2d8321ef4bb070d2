package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rmiatl/leadcall-proxy/internal/circuitbreaker"
	"github.com/rmiatl/leadcall-proxy/internal/metrics"
	"github.com/rmiatl/leadcall-proxy/internal/outcome"
	"github.com/rmiatl/leadcall-proxy/internal/record"
	"github.com/rmiatl/leadcall-proxy/internal/strategy"
	"github.com/rmiatl/leadcall-proxy/internal/upstream"
)

// Sender performs one outbound call.
type Sender interface {
	Send(ctx context.Context, call upstream.Call) (upstream.Response, error)
}

// Config is the static routing configuration.
type Config struct {
	FraudScore   *upstream.Destination
	LeadDelivery *upstream.Destination
	// PassThru answers every lead with success without calling upstream.
	PassThru       bool
	DeploymentSlot string
	BuildVersion   string
}

type Dispatcher struct {
	config   Config
	splitter strategy.Splitter
	breakers *circuitbreaker.Store
	sender   Sender
	records  record.Submitter
	metrics  *metrics.Collector
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Dispatcher)

func WithRecords(s record.Submitter) Option {
	return func(d *Dispatcher) {
		d.records = s
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) {
		d.metrics = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

func WithRequestIDs(newID func() string) Option {
	return func(d *Dispatcher) {
		d.newID = newID
	}
}

func New(cfg Config, splitter strategy.Splitter, breakers *circuitbreaker.Store, sender Sender, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		config:   cfg,
		splitter: splitter,
		breakers: breakers,
		sender:   sender,
		records:  record.Nop{},
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Destinations returns the fraud-score and lead-delivery profiles.
func (d *Dispatcher) Destinations() []*upstream.Destination {
	return []*upstream.Destination{d.config.FraudScore, d.config.LeadDelivery}
}

// SplitPercent is the configured share of leads sent to the fraud-score service.
func (d *Dispatcher) SplitPercent() int {
	return d.config.FraudScore.SplitPercent
}

// Dispatch handles one lead. The outbound call and all bookkeeping run
// detached from ctx cancellation so a disconnecting caller does not lose
// breaker updates.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	requestID := d.newID()
	logger := d.logger.With(slog.String("request_id", requestID))
	d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived})

	l, err := parseLead(req.Payload)
	if err != nil {
		logger.Warn("Rejected lead", slog.Any("error", err))
		d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventRequestRejected, Reason: "validation"})
		return Result{}, err
	}

	ctx = context.WithoutCancel(ctx)

	dest, err := d.selectDestination(ctx, req)
	if err != nil {
		logger.Error("No destination available",
			slog.String("fraud_score_host", d.config.FraudScore.Host()),
			slog.String("lead_delivery_host", d.config.LeadDelivery.Host()))
		d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventRequestRejected, Reason: "no_destination"})
		return Result{}, err
	}

	host := dest.Host()
	d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventDestinationSelected, Destination: host})

	body, err := l.forward(host)
	if err != nil {
		return Result{}, fmt.Errorf("encode payload: %w", err)
	}

	result := Result{
		Destination: dest.Kind,
		Host:        host,
		RequestID:   requestID,
	}

	switch {
	case req.SimulateStatus != nil:
		return d.simulate(ctx, logger, req, dest, body, result), nil
	case req.PassThru || d.config.PassThru:
		logger.Info("Pass-through lead", slog.String("destination", host))
		d.breakers.RecordOutcome(ctx, d.outcome(req, host, 0, true))
		result.Success = true
		result.StatusCode = http.StatusOK
		result.Body = body
		return result, nil
	}

	call := dest.NewCall(dest.URLFor(l.phone, l.campaign), body)
	started := d.now()

	logger.Info("Forwarding lead",
		slog.String("destination", dest.Kind.String()),
		slog.String("method", call.Method),
		slog.String("url", call.URL))

	resp, sendErr := d.sender.Send(ctx, call)
	elapsed := resp.Elapsed
	if elapsed <= 0 {
		elapsed = d.now().Sub(started)
	}
	seconds := elapsed.Seconds()

	var verdict outcome.Verdict
	if sendErr != nil {
		verdict = outcome.Failed(dest.Kind, sendErr.Error())
	} else {
		verdict = outcome.Classify(dest.Kind, resp.Body, dest.MaxFraudScore)
	}

	reachable := sendErr == nil && resp.OK() && (dest.Kind != upstream.KindFraudScore || verdict.Parsed)
	state := d.breakers.RecordOutcome(ctx, d.outcome(req, host, seconds, reachable))

	d.metrics.Emit(metrics.MetricEvent{
		Type:        metrics.EventResponseCompleted,
		Destination: host,
		Duration:    elapsed,
		StatusCode:  resp.StatusCode,
		Success:     verdict.Success,
	})
	d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventPauseChanged, Destination: host, Paused: state.Paused()})

	attrs := []any{
		slog.String("destination", host),
		slog.Int("status", resp.StatusCode),
		slog.Bool("success", verdict.Success),
		slog.Duration("elapsed", elapsed),
		slog.Int("error_count", state.ErrorCount),
	}
	if sendErr != nil {
		attrs = append(attrs, slog.Any("error", sendErr))
		logger.Warn("Upstream call failed", attrs...)
	} else {
		logger.Info("Upstream responded", attrs...)
	}

	rec := outcome.Record{
		Posted:         l.fields,
		RequestID:      requestID,
		Verdict:        verdict,
		RequestHost:    req.RequestHost,
		DeploymentSlot: d.config.DeploymentSlot,
		BuildVersion:   d.config.BuildVersion,
		Timestamp:      started,
		TotalSeconds:   math.Round(seconds*100) / 100,
		ServicePaused:  state.Paused(),
	}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	d.records.Submit(ctx, dest.DataTable, rec)

	result.Success = verdict.Success
	if verdict.Success {
		result.StatusCode = http.StatusOK
		result.Body = body
	} else {
		result.StatusCode = http.StatusNoContent
	}
	return result, nil
}

// selectDestination fails over to lead delivery while the fraud-score
// service is paused, and lets the splitter decide otherwise.
func (d *Dispatcher) selectDestination(ctx context.Context, req Request) (*upstream.Destination, error) {
	fraud, lead := d.config.FraudScore, d.config.LeadDelivery

	if !d.breakers.IsPaused(ctx, fraud.Host()) {
		percent := fraud.SplitPercent
		if req.SplitPercent != nil && *req.SplitPercent >= 0 {
			percent = *req.SplitPercent
		}
		if d.splitter.Decide(percent) {
			return fraud, nil
		}
		return lead, nil
	}

	if !d.breakers.IsPaused(ctx, lead.Host()) {
		return lead, nil
	}
	return nil, ErrNoDestinationAvailable
}

// simulate answers as if the destination returned req.SimulateStatus. Lead
// delivery always simulates 200. The breaker counts the simulated status; no
// record is stored.
func (d *Dispatcher) simulate(ctx context.Context, logger *slog.Logger, req Request, dest *upstream.Destination, body []byte, result Result) Result {
	code := *req.SimulateStatus
	if dest.Kind == upstream.KindLeadDelivery {
		code = http.StatusOK
	}

	logger.Info("Simulating upstream response",
		slog.String("destination", dest.Host()),
		slog.Int("status", code))

	ok := upstream.IsSuccessStatus(code)
	state := d.breakers.RecordOutcome(ctx, d.outcome(req, dest.Host(), 0, ok))
	d.metrics.Emit(metrics.MetricEvent{Type: metrics.EventPauseChanged, Destination: dest.Host(), Paused: state.Paused()})

	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		result.StatusCode = http.StatusNoContent
		return result
	}
	result.Success = true
	result.StatusCode = http.StatusOK
	result.Body = body
	return result
}

func (d *Dispatcher) outcome(req Request, host string, seconds float64, success bool) circuitbreaker.Outcome {
	return circuitbreaker.Outcome{
		Host:            host,
		ResponseSeconds: seconds,
		Success:         success,
		RequestHost:     req.RequestHost,
		StatusURL:       req.StatusURL,
		SplitCounter:    d.splitter.Counter(),
		Quiet:           req.SuppressNotifications,
	}
}
