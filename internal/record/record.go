package record

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rmiatl/leadcall-proxy/internal/notify"
	"github.com/rmiatl/leadcall-proxy/internal/upstream"
)

// Submitter accepts an enriched record for storage in table.
type Submitter interface {
	Submit(ctx context.Context, table string, payload any)
}

// Nop drops every record.
type Nop struct{}

func (Nop) Submit(context.Context, string, any) {}

// Config describes the data queue endpoint.
type Config struct {
	BaseURL string
	AuthKey string
	Timeout time.Duration
}

// DataQueue PUTs records to {BaseURL}/{table}/.
type DataQueue struct {
	config   Config
	client   *upstream.Client
	notifier notify.Notifier
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDataQueue(cfg Config, client *upstream.Client, notifier notify.Notifier, logger *slog.Logger) *DataQueue {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &DataQueue{
		config:   cfg,
		client:   client,
		notifier: notifier,
		logger:   logger,
	}
}

// URLFor returns the endpoint for table.
func (q *DataQueue) URLFor(table string) string {
	return strings.TrimRight(q.config.BaseURL, "/") + "/" + strings.Trim(table, "/") + "/"
}

// Submit marshals payload and sends it in the background. Errors are logged.
func (q *DataQueue) Submit(ctx context.Context, table string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		q.logger.Error("Failed to encode record", slog.String("table", table), slog.Any("error", err))
		return
	}

	call := upstream.Call{
		Method:      http.MethodPut,
		URL:         q.URLFor(table),
		ContentType: "application/json; charset=utf-8",
		Body:        body,
		Timeout:     q.config.Timeout,
	}
	if q.config.AuthKey != "" {
		call.Header = http.Header{"AuthKey": []string{q.config.AuthKey}}
	}

	ctx = context.WithoutCancel(ctx)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.send(ctx, call)
	}()
}

func (q *DataQueue) send(ctx context.Context, call upstream.Call) {
	resp, err := q.client.Send(ctx, call)
	if err != nil {
		q.logger.Error("Record submission failed", slog.String("url", call.URL), slog.Any("error", err))
		q.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindFailure,
			Message: fmt.Sprintf("Error: %v - %s", err, call.URL),
		})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		q.logger.Warn("Record submission rejected",
			slog.String("url", call.URL),
			slog.Int("status", resp.StatusCode))
		q.notifier.Notify(ctx, notify.Event{
			Kind:    notify.KindFailure,
			Message: fmt.Sprintf("Status: %d - %s", resp.StatusCode, call.URL),
		})
		return
	}

	q.logger.Debug("Record submitted",
		slog.String("url", call.URL),
		slog.Duration("elapsed", resp.Elapsed))
}

// Wait blocks until every pending submission has finished.
func (q *DataQueue) Wait() {
	q.wg.Wait()
}
