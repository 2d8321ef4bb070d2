package outcome

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rmiatl/leadcall-proxy/internal/upstream"
)

// Record is the enriched lead that is submitted for storage.
//
// Posted holds the fields of the original submission, including the
// proxy_host added before forwarding. The remaining fields are written over
// them when the record is marshalled.
type Record struct {
	Posted map[string]json.RawMessage

	RequestID      string
	Verdict        Verdict
	Error          string
	RequestHost    string
	DeploymentSlot string
	BuildVersion   string
	Timestamp      time.Time
	TotalSeconds   float64
	ServicePaused  bool
}

// ParsePosted decodes a JSON object submission into its raw fields.
func ParsePosted(body []byte) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(bytes.TrimSpace(body), &fields); err != nil {
		return nil, fmt.Errorf("decode posted payload: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode posted payload: not an object")
	}
	return fields, nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Posted)+16)
	for k, v := range r.Posted {
		out[k] = v
	}

	errText := r.Error
	if errText == "" && !r.Verdict.Success {
		errText = r.Verdict.Message
	}

	switch r.Verdict.Kind {
	case upstream.KindFraudScore:
		out["recent_abuse"] = r.Verdict.RecentAbuse
		out["fraud_score"] = r.Verdict.FraudScore
		out["risky"] = r.Verdict.Risky
		out["do_not_call"] = r.Verdict.DoNotCall
		out["leaked"] = r.Verdict.Leaked
		out["spammer"] = r.Verdict.Spammer
		out["active"] = r.Verdict.Active
		out["valid"] = r.Verdict.Valid
		if !r.Verdict.FraudScore.Known {
			out["error"] = nullable(errText)
		}
	default:
		out["error"] = nullable(errText)
	}

	if r.RequestID != "" {
		out["request_id"] = r.RequestID
	}
	out["request_url"] = r.RequestHost
	out["deployment_slot"] = r.DeploymentSlot
	out["build_version"] = r.BuildVersion
	out["success"] = r.Verdict.Success
	out["timestamp"] = r.Timestamp
	out["total_seconds"] = r.TotalSeconds
	out["service_paused"] = r.ServicePaused

	return json.Marshal(out)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
