package outcome

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/rmiatl/leadcall-proxy/internal/upstream"
)

// Verdict is the classified result of one upstream response.
type Verdict struct {
	Kind    upstream.Kind
	Success bool
	// Parsed is false when the body was empty or not a JSON object.
	Parsed  bool
	Message string

	// Fraud-score fields. Unknown unless the service reported a valid number.
	Valid       bool
	FraudScore  Field[int]
	RecentAbuse Field[bool]
	Risky       Field[bool]
	DoNotCall   Field[bool]
	Leaked      Field[bool]
	Spammer     Field[bool]
	Active      Field[bool]
}

type fraudScoreBody struct {
	Success     *bool    `json:"success"`
	Valid       *bool    `json:"valid"`
	FraudScore  *float64 `json:"fraud_score"`
	RecentAbuse *bool    `json:"recent_abuse"`
	Risky       *bool    `json:"risky"`
	DoNotCall   *bool    `json:"do_not_call"`
	Leaked      *bool    `json:"leaked"`
	Spammer     *bool    `json:"spammer"`
	Active      *bool    `json:"active"`
	Message     string   `json:"message"`
}

type leadDeliveryBody struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

// Classify dispatches on the destination kind.
func Classify(kind upstream.Kind, body []byte, maxFraudScore int) Verdict {
	if kind == upstream.KindFraudScore {
		return ClassifyFraudScore(body, maxFraudScore)
	}
	return ClassifyLeadDelivery(body)
}

// ClassifyFraudScore applies the fraud-score rules to body.
func ClassifyFraudScore(body []byte, maxFraudScore int) Verdict {
	v := Verdict{Kind: upstream.KindFraudScore}

	var resp fraudScoreBody
	if !decodeObject(body, &resp) {
		v.Message = "response could not be parsed"
		return v
	}
	v.Parsed = true
	v.Message = resp.Message
	v.Valid = isTrue(resp.Valid)

	if !isTrue(resp.Success) || !v.Valid || resp.FraudScore == nil {
		return v
	}

	score := int(math.Round(*resp.FraudScore))
	abuse := isTrue(resp.RecentAbuse)

	v.FraudScore = Known(score)
	v.RecentAbuse = Known(abuse)
	v.Risky = Known(isTrue(resp.Risky))
	v.DoNotCall = Known(isTrue(resp.DoNotCall))
	v.Leaked = Known(isTrue(resp.Leaked))
	v.Spammer = Known(isTrue(resp.Spammer))
	v.Active = Known(isTrue(resp.Active))
	v.Success = !abuse && score < maxFraudScore
	return v
}

// ClassifyLeadDelivery applies the lead-delivery rules to body. A body that
// cannot be parsed counts as a success.
func ClassifyLeadDelivery(body []byte) Verdict {
	v := Verdict{Kind: upstream.KindLeadDelivery}

	var resp leadDeliveryBody
	if !decodeObject(body, &resp) {
		v.Success = true
		return v
	}
	v.Parsed = true
	v.Success = resp.Outcome == "success"
	if !v.Success {
		v.Message = resp.Reason
	}
	return v
}

// Failed is the verdict for a call that produced no usable response.
func Failed(kind upstream.Kind, message string) Verdict {
	return Verdict{Kind: kind, Message: message}
}

func decodeObject(body []byte, dst any) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return false
	}
	return json.Unmarshal(body, dst) == nil
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
