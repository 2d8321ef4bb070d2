package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	colorSuccess = "#2eb886"
	colorDanger  = "#dc3545"

	defaultTitle = "Proxy API Service"
)

// SlackConfig configures the Slack webhook notifier.
type SlackConfig struct {
	WebhookURL string
	Channel    string
	Title      string
	// PerMinute and Burst throttle posts; zero PerMinute disables throttling.
	PerMinute int
	Burst     int
	Timeout   time.Duration
}

// Slack posts events to a Slack incoming webhook.
type Slack struct {
	cfg     SlackConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewSlack(cfg SlackConfig, client *http.Client, logger *slog.Logger) *Slack {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Title == "" {
		cfg.Title = defaultTitle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.PerMinute > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), burst)
	}

	return &Slack{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// Notify posts the event in the background.
func (s *Slack) Notify(ctx context.Context, event Event) {
	if s.cfg.WebhookURL == "" {
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Warn("Slack notification dropped by rate limit",
			slog.String("kind", string(event.Kind)),
			slog.String("proxy_host", event.Host))
		return
	}

	msg := buildMessage(s.cfg, event)
	go s.post(context.WithoutCancel(ctx), msg)
}

func (s *Slack) post(ctx context.Context, msg message) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode Slack message", slog.Any("err", err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("Failed to build Slack request", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	res, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to post Slack message", slog.Any("err", err))
		return
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 300 {
		s.logger.Warn("Slack webhook rejected message", slog.Int("status", res.StatusCode))
	}
}

type message struct {
	Channel     string       `json:"channel,omitempty"`
	Title       string       `json:"title"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments,omitempty"`
}

type attachment struct {
	Color  string  `json:"color"`
	Blocks []block `json:"blocks"`
}

type block struct {
	Type     string    `json:"type"`
	Fields   []text    `json:"fields,omitempty"`
	Elements []element `json:"elements,omitempty"`
}

type text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type element struct {
	Type  string `json:"type"`
	Style string `json:"style,omitempty"`
	Value string `json:"value,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  text   `json:"text"`
}

func mrkdwn(format string, args ...any) text {
	return text{Type: "mrkdwn", Text: fmt.Sprintf(format, args...)}
}

func buildMessage(cfg SlackConfig, event Event) message {
	msg := message{Channel: cfg.Channel, Title: cfg.Title}

	switch event.Kind {
	case KindPaused, KindResumed:
	default:
		msg.Text = event.Message
		if event.Host != "" {
			msg.Text = fmt.Sprintf("%s: %s", event.Host, event.Message)
		}
		return msg
	}

	paused := event.Kind == KindPaused
	fields := []text{
		mrkdwn("Proxy-Host: *%s*", event.Host),
		mrkdwn("Request-Host: *%s*", event.RequestHost),
	}

	color := colorSuccess
	msg.Text = fmt.Sprintf("%s is *RESUMED!!!*", event.Host)
	if paused {
		color = colorDanger
		msg.Text = fmt.Sprintf("%s is *PAUSED!!!*", event.Host)
		fields = append(fields,
			mrkdwn("Last-Error: *%s*", FormatDuration(event.LastErrorAge)),
			mrkdwn("Resume-Time: *%s*", FormatDuration(event.ResumeIn)),
			mrkdwn("Total-Errors: *%d*", event.TotalErrors),
		)
	}

	blocks := []block{{Type: "section", Fields: fields}}
	if paused && event.StatusURL != "" {
		blocks = append(blocks,
			block{Type: "divider"},
			block{Type: "actions", Elements: []element{{
				Type:  "button",
				Style: "primary",
				Value: "check_proxy_status",
				URL:   event.StatusURL,
				Text:  text{Type: "plain_text", Text: "Check Status"},
			}}},
		)
	}

	msg.Attachments = []attachment{{Color: color, Blocks: blocks}}
	return msg
}
