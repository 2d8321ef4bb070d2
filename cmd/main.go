package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rmiatl/leadcall-proxy/config"
	"github.com/rmiatl/leadcall-proxy/internal/circuitbreaker"
	"github.com/rmiatl/leadcall-proxy/internal/dispatch"
	"github.com/rmiatl/leadcall-proxy/internal/handler"
	"github.com/rmiatl/leadcall-proxy/internal/healthcheck"
	"github.com/rmiatl/leadcall-proxy/internal/httpserver"
	"github.com/rmiatl/leadcall-proxy/internal/metrics"
	"github.com/rmiatl/leadcall-proxy/internal/notify"
	"github.com/rmiatl/leadcall-proxy/internal/record"
	"github.com/rmiatl/leadcall-proxy/internal/strategy"
	"github.com/rmiatl/leadcall-proxy/internal/upstream"
	"github.com/rmiatl/leadcall-proxy/pkg/logger"
)

// connectivityCheckURL is probed alongside the configured services to tell
// a local network outage apart from an upstream one.
const connectivityCheckURL = "https://www.google.com"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Failed to initialize proxy", slog.Any("err", err))
		os.Exit(1)
	}
	a.start(ctx)

	srv, err := httpserver.New(cfg.Server.Address, a.router)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Lead call proxy started",
		slog.String("addr", srv.Addr()),
		slog.String("fraud_score", a.dispatcher.Destinations()[0].Host()),
		slog.String("lead_delivery", a.dispatcher.Destinations()[1].Host()),
		slog.Int("split_percent", a.dispatcher.SplitPercent()))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		a.wait()
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// app holds the wired components of the proxy.
type app struct {
	cfg        *config.Config
	log        *slog.Logger
	router     http.Handler
	dispatcher *dispatch.Dispatcher
	store      *circuitbreaker.Store
	collector  *metrics.Collector
	monitor    *healthcheck.Monitor
	dataQueue  *record.DataQueue
}

func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	fraud, err := newDestination(upstream.KindFraudScore, cfg.Proxy.FraudScore)
	if err != nil {
		return nil, err
	}
	lead, err := newDestination(upstream.KindLeadDelivery, cfg.Proxy.LeadDelivery)
	if err != nil {
		return nil, err
	}

	adminNetworks, err := cfg.AdminNetworks()
	if err != nil {
		return nil, err
	}

	notifier := notify.Multi{notify.NewLog(log)}
	if cfg.Notify.SlackURL != "" {
		notifier = append(notifier, notify.NewSlack(notify.SlackConfig{
			WebhookURL: cfg.Notify.SlackURL,
			Channel:    cfg.Notify.Channel,
			Title:      cfg.Notify.Title,
			PerMinute:  cfg.Notify.PerMinute,
			Burst:      cfg.Notify.Burst,
		}, nil, log))
	}

	store := circuitbreaker.NewStore(circuitbreaker.Settings{
		MaxRequestErrorCount: cfg.Proxy.MaxRequestErrorCount,
		ResetPause:           cfg.ResetPause(),
	}, log, circuitbreaker.WithNotifier(notifier))

	client := upstream.NewClient(nil)
	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)

	a := &app{
		cfg:       cfg,
		log:       log,
		store:     store,
		collector: collector,
	}

	var records record.Submitter = record.Nop{}
	if cfg.DataQueue.URL != "" {
		a.dataQueue = record.NewDataQueue(record.Config{
			BaseURL: cfg.DataQueue.URL,
			AuthKey: cfg.DataQueue.AuthKey,
			Timeout: cfg.DataQueueTimeout(),
		}, client, notifier, log)
		records = a.dataQueue
	}

	a.dispatcher = dispatch.New(dispatch.Config{
		FraudScore:     fraud,
		LeadDelivery:   lead,
		PassThru:       cfg.Proxy.PassThru,
		DeploymentSlot: cfg.Deployment.Slot,
		BuildVersion:   cfg.Deployment.BuildVersion,
	}, strategy.NewPercentSplitter(), store, client, log,
		dispatch.WithRecords(records),
		dispatch.WithMetrics(collector))

	a.monitor = healthcheck.NewMonitor(nil, []string{fraud.Origin(), lead.Origin()}, cfg.HealthCheckInterval(), log)

	probeTargets := []string{cfg.DataQueue.URL, cfg.Notify.SlackURL, fraud.Origin(), lead.Origin(), connectivityCheckURL}
	probeClient := &http.Client{Timeout: 10 * time.Second}
	probe := func(ctx context.Context) []healthcheck.Result {
		return healthcheck.Probe(ctx, probeClient, probeTargets)
	}

	access := handler.NewAccess(cfg.Auth.Key, adminNetworks, log)
	a.router = setupRouter(log, routes{
		access:  access,
		proxy:   handler.NewProxyHandler(a.dispatcher, log),
		cache:   handler.NewCacheHandler(store, log),
		ping:    handler.NewPingHandler(access, probe, a.monitor.Status),
		metrics: collector.Handler(a.dispatcher.SplitPercent),
	})

	return a, nil
}

// start runs the background workers until ctx is done.
func (a *app) start(ctx context.Context) {
	a.store.Start(ctx, a.cfg.CleanupInterval())
	a.collector.Start(ctx)
	go a.monitor.Run(ctx)
}

// wait blocks until pending record submissions have finished.
func (a *app) wait() {
	if a.dataQueue != nil {
		a.dataQueue.Wait()
	}
}

func newDestination(kind upstream.Kind, dc config.DestinationConfig) (*upstream.Destination, error) {
	d, err := upstream.NewDestination(kind, dc.URL)
	if err != nil {
		return nil, fmt.Errorf("%s destination: %w", kind, err)
	}

	if dc.Method != "" {
		d.Method = strings.ToUpper(dc.Method)
	}
	if dc.ContentType != "" {
		d.ContentType = dc.ContentType
	}
	if dc.TimeoutSeconds > 0 {
		d.Timeout = time.Duration(dc.TimeoutSeconds) * time.Second
	}
	d.DataTable = dc.DataTable
	d.SplitPercent = dc.SplitPercent
	d.MaxFraudScore = dc.MaxFraudScore

	return d, nil
}
