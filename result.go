package autoposter

import "time"

// OutcomeKind classifies a send attempt.
//
// OutcomeKind is a string type so it reads well in logs and JSON while the
// defined constants keep comparisons type safe.
type OutcomeKind string

const (
	// OutcomeSuccess means the API accepted the message (HTTP 200).
	OutcomeSuccess OutcomeKind = "success"

	// OutcomeRateLimited means the API answered 429; see SendResult.RetryAfter.
	OutcomeRateLimited OutcomeKind = "rate_limited"

	// OutcomeForbidden means the identity may not post in the channel (403).
	OutcomeForbidden OutcomeKind = "forbidden"

	// OutcomeNotFound means the channel does not exist (404).
	OutcomeNotFound OutcomeKind = "not_found"

	// OutcomeOther covers every other status and transport failures.
	OutcomeOther OutcomeKind = "other"
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	return string(k)
}

// SendResult holds the outcome of one send attempt.
type SendResult struct {
	// ChannelID is the channel the message was posted to.
	ChannelID string

	// Key distinguishes tasks that share a channel id ("<id>#2", ...).
	Key string

	Outcome OutcomeKind

	// StatusCode is zero if no response was received.
	StatusCode int

	// RetryAfter is the server's wait hint, only set for OutcomeRateLimited.
	RetryAfter time.Duration

	Latency time.Duration
	SentAt  time.Time

	// AttemptID correlates this result with its log line.
	AttemptID string

	// Error is set for transport failures (timeouts, DNS, resets).
	Error error
}

// OK reports whether the message was accepted.
func (r SendResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// ChannelStats is the in-memory tally for one posting task.
type ChannelStats struct {
	Key           string
	ChannelID     string
	Sent          uint64
	Failed        uint64
	LastOutcome   OutcomeKind
	LastAttemptAt time.Time
	LastSuccessAt time.Time
}
