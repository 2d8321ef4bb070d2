package dispatch

import (
	"encoding/json"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rmiatl/leadcall-proxy/internal/outcome"
	"github.com/rmiatl/leadcall-proxy/internal/upstream"
)

const (
	FieldPhone     = "phone_1"
	FieldCampaign  = "promo_description_rmi"
	FieldProxyHost = "proxy_host"
)

// Request is one inbound lead submission plus the admin overrides parsed
// from its query string.
type Request struct {
	Payload []byte
	// RequestHost is the host the caller addressed; it is stored with the
	// record and shown in pause notifications.
	RequestHost string
	StatusURL   string

	// SplitPercent overrides the configured split when set and >= 0.
	SplitPercent *int
	// SimulateStatus skips the upstream and acts as if it answered with
	// this status.
	SimulateStatus *int
	// PassThru skips the upstream and answers with success.
	PassThru bool
	// SuppressNotifications keeps breaker counting but silences alerts.
	SuppressNotifications bool
}

// Result is what the caller is answered with.
type Result struct {
	StatusCode  int
	Body        []byte
	Destination upstream.Kind
	Host        string
	Success     bool
	RequestID   string
}

type lead struct {
	fields   map[string]json.RawMessage
	phone    string
	campaign string
}

func parseLead(payload []byte) (*lead, error) {
	fields, err := outcome.ParsePosted(payload)
	if err != nil {
		return nil, &ValidationError{Field: "body", Message: "payload must be a JSON object"}
	}

	l := &lead{
		fields:   fields,
		phone:    stringField(fields, FieldPhone),
		campaign: stringField(fields, FieldCampaign),
	}

	if err := validation.Validate(l.phone, validation.Required.Error("phone missing")); err != nil {
		return nil, &ValidationError{Field: FieldPhone, Message: err.Error()}
	}
	if err := validation.Validate(l.campaign, validation.Required.Error("campaign missing")); err != nil {
		return nil, &ValidationError{Field: FieldCampaign, Message: err.Error()}
	}
	return l, nil
}

// stringField reads a string or number field; anything else reads as empty.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// forward returns the payload with proxy_host set to host.
func (l *lead) forward(host string) ([]byte, error) {
	quoted, err := json.Marshal(host)
	if err != nil {
		return nil, err
	}
	l.fields[FieldProxyHost] = quoted
	return json.Marshal(l.fields)
}
