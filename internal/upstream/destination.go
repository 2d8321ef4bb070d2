package upstream

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Kind identifies which verification service a destination is.
type Kind string

const (
	KindFraudScore   Kind = "fraud_score"
	KindLeadDelivery Kind = "lead_delivery"
)

// DefaultTimeout bounds an outbound call when the profile sets none.
const DefaultTimeout = 30 * time.Second

func (k Kind) String() string {
	return string(k)
}

// Destination is the static profile of one upstream service.
type Destination struct {
	Kind          Kind
	BaseURL       *url.URL
	Method        string
	ContentType   string
	DataTable     string
	Timeout       time.Duration
	MaxFraudScore int
	SplitPercent  int
}

// NewDestination parses rawURL and fills in defaults for method and timeout.
func NewDestination(kind Kind, rawURL string) (*Destination, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", kind, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%s url %q has no host", kind, rawURL)
	}

	return &Destination{
		Kind:        kind,
		BaseURL:     u,
		Method:      http.MethodPost,
		ContentType: "application/json",
		Timeout:     DefaultTimeout,
	}, nil
}

// Host is the breaker key of the destination: its lower-cased host name.
func (d *Destination) Host() string {
	return strings.ToLower(d.BaseURL.Hostname())
}

// Origin returns scheme://host[:port] of the destination.
func (d *Destination) Origin() string {
	return d.BaseURL.Scheme + "://" + d.BaseURL.Host
}

func (d *Destination) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

// URLFor builds the outbound URL for a lead. The fraud-score service takes the
// phone number in the path and the campaign as a query parameter; the lead
// delivery service is always called on its base URL.
func (d *Destination) URLFor(phone, campaign string) string {
	if d.Kind != KindFraudScore {
		return d.BaseURL.String()
	}

	u := *d.BaseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + url.PathEscape(phone)
	u.RawPath = ""

	q := url.Values{}
	q.Set("promoCampaign", campaign)
	q.Set("country", "US")
	u.RawQuery = q.Encode()

	return u.String()
}
