package sender

import (
	"encoding/json"
	"math"
	"net/http"
	"time"
)

// DefaultRetryAfter is used when a rate-limit response carries no usable hint.
const DefaultRetryAfter = 60 * time.Second

// Kind classifies the outcome of one send attempt.
type Kind string

const (
	KindSuccess     Kind = "success"
	KindRateLimited Kind = "rate_limited"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindOther       Kind = "other"
)

// Outcome is the classified result of one send attempt.
type Outcome struct {
	Kind Kind

	// StatusCode is zero when no response was received.
	StatusCode int

	// RetryAfter is only set for KindRateLimited.
	RetryAfter time.Duration

	Latency   time.Duration
	AttemptID string
	SentAt    time.Time

	// Error is set for transport failures.
	Error error
}

// OK reports whether the message was accepted.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// Reason returns a short human-readable explanation for known failure kinds.
func (o Outcome) Reason() string {
	switch o.Kind {
	case KindRateLimited:
		return "rate limited"
	case KindForbidden:
		return "no permission to post in this channel"
	case KindNotFound:
		return "channel not found"
	case KindOther:
		if o.Error != nil {
			return "request failed"
		}
		return "unexpected status"
	default:
		return ""
	}
}

// classify maps a response onto an [Outcome] kind.
func classify(resp Response) Outcome {
	out := Outcome{
		StatusCode: resp.StatusCode,
		Latency:    resp.Latency,
		Error:      resp.Error,
	}

	if resp.Error != nil {
		out.Kind = KindOther
		return out
	}

	switch resp.StatusCode {
	case http.StatusOK:
		out.Kind = KindSuccess
	case http.StatusTooManyRequests:
		out.Kind = KindRateLimited
		out.RetryAfter = parseRetryAfter(resp.Body)
	case http.StatusForbidden:
		out.Kind = KindForbidden
	case http.StatusNotFound:
		out.Kind = KindNotFound
	default:
		out.Kind = KindOther
	}
	return out
}

// maxRetryAfterSeconds is the largest hint that still fits in a Duration.
const maxRetryAfterSeconds = float64(math.MaxInt64) / float64(time.Second)

// parseRetryAfter reads the retry_after field (seconds, possibly fractional)
// from a rate-limit body, falling back to [DefaultRetryAfter].
func parseRetryAfter(body []byte) time.Duration {
	var payload struct {
		RetryAfter *float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.RetryAfter == nil {
		return DefaultRetryAfter
	}

	secs := *payload.RetryAfter
	if secs < 0 || math.IsNaN(secs) || secs > maxRetryAfterSeconds {
		return DefaultRetryAfter
	}
	return time.Duration(secs * float64(time.Second))
}
