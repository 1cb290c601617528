package store

import "time"

// Attempt is the storage representation of one send attempt.
type Attempt struct {
	// Key identifies the task; it differs from ChannelID when one channel
	// has several tasks.
	Key       string
	ChannelID string

	// Outcome is the outcome kind, e.g. "success" or "rate_limited".
	Outcome    string
	StatusCode int
	At         time.Time

	// Error is empty unless the attempt failed at the transport level.
	Error string
}

// ChannelStats is the running tally for one task.
type ChannelStats struct {
	Key       string `json:"key"`
	ChannelID string `json:"channel_id"`

	Sent   uint64 `json:"sent"`
	Failed uint64 `json:"failed"`

	LastOutcome    string    `json:"last_outcome"`
	LastStatusCode int       `json:"last_status_code"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
	LastSuccessAt  time.Time `json:"last_success_at"`

	// LastError is nil when the last attempt had no transport error.
	LastError *string `json:"last_error"`
}

// Store records attempts and serves snapshots.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Record folds an attempt into the tally for its key.
	Record(a Attempt)

	// GetAll returns a snapshot of every tally, ordered by key.
	GetAll() []ChannelStats
}
