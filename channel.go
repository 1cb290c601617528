package autoposter

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the longest message body the API accepts, in characters.
const MaxMessageLength = 2000

// MinInterval is the shortest allowed posting interval.
const MinInterval = time.Second

// Channel is one channel's posting task: where to post, what to post and
// how often.
//
// Channel is immutable after creation via [NewChannel]. All fields are
// private with getter methods.
type Channel struct {
	id       string
	message  string
	interval time.Duration
}

// ID returns the channel identifier.
func (c Channel) ID() string {
	return c.id
}

// Message returns the message body posted on every tick.
func (c Channel) Message() string {
	return c.message
}

// Interval returns the time between consecutive posts, in whole seconds.
func (c Channel) Interval() time.Duration {
	return c.interval
}

// NewChannel creates a [Channel].
//
// The interval is truncated to whole seconds and must be at least
// [MinInterval]. The first message is posted as soon as the poster starts;
// later ones follow every interval.
//
// Returns an error if the id or message is empty, the message is longer than
// [MaxMessageLength] characters, or the interval is too short.
//
// Example:
//
//	ch, err := autoposter.NewChannel("1234567890", "hello", 30*time.Minute)
func NewChannel(id, message string, interval time.Duration) (Channel, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Channel{}, errors.New("channel id cannot be empty")
	}
	if strings.TrimSpace(message) == "" {
		return Channel{}, errors.New("message cannot be empty")
	}
	if n := utf8.RuneCountInString(message); n > MaxMessageLength {
		return Channel{}, fmt.Errorf("message is %d characters, limit is %d", n, MaxMessageLength)
	}

	interval = interval.Truncate(time.Second)
	if interval < MinInterval {
		return Channel{}, fmt.Errorf("interval must be at least %s", MinInterval)
	}

	return Channel{
		id:       id,
		message:  message,
		interval: interval,
	}, nil
}
