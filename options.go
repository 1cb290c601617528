package autoposter

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"time"
)

// posterConfig holds mutable state during Poster construction.
type posterConfig struct {
	token           string
	channels        []Channel
	baseURL         string
	requestTimeout  time.Duration
	gracePeriod     time.Duration
	display         Display
	honorRetryAfter bool
	ratePerSecond   float64
	burst           int
	statusAddr      string
	logger          *slog.Logger
	sendCallbacks   []func(SendResult)
}

// Option is a function that configures a [Poster] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*posterConfig) error

// WithToken sets the authentication token used for every request.
//
// A token is required. It is never written to logs.
func WithToken(token string) Option {
	return func(cfg *posterConfig) error {
		if token == "" {
			return errors.New("token cannot be empty")
		}
		cfg.token = token
		return nil
	}
}

// WithChannel adds a single [Channel] to post to.
//
// Can be called multiple times. At least one channel must be configured for
// [New] to succeed.
func WithChannel(c Channel) Option {
	return func(cfg *posterConfig) error {
		cfg.channels = append(cfg.channels, c)
		return nil
	}
}

// WithChannels adds multiple [Channel] values.
// Equivalent to calling [WithChannel] for each.
func WithChannels(channels ...Channel) Option {
	return func(cfg *posterConfig) error {
		cfg.channels = append(cfg.channels, channels...)
		return nil
	}
}

// WithAPIBaseURL overrides the API root, "https://discord.com/api/v10" by
// default. Mostly useful for tests and proxies.
//
// Returns an error if the URL has no http or https scheme.
func WithAPIBaseURL(rawURL string) Option {
	return func(cfg *posterConfig) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return errors.New("invalid API base URL: " + err.Error())
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("API base URL must have a scheme (http:// or https://)")
		}
		cfg.baseURL = rawURL
		return nil
	}
}

// WithRequestTimeout bounds every HTTP request. Defaults to 15 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *posterConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithGracePeriod sets how long [Poster.Stop] waits for posting tasks to
// finish their in-flight sends. Defaults to 2 seconds.
//
// Returns an error if the duration is negative.
func WithGracePeriod(d time.Duration) Option {
	return func(cfg *posterConfig) error {
		if d < 0 {
			return errors.New("grace period cannot be negative")
		}
		cfg.gracePeriod = d
		return nil
	}
}

// WithDisplay sets where the "Messages sent: N" status line goes.
//
// The display is updated once at start and after every successful send.
// Nil disables the display.
func WithDisplay(d Display) Option {
	return func(cfg *posterConfig) error {
		cfg.display = d
		return nil
	}
}

// WithHonorRetryAfter makes a channel retry after the server's rate-limit
// hint instead of waiting its full interval, when the hint is shorter.
//
// Off by default: rate-limited attempts are logged and the channel simply
// waits for its next regular tick.
func WithHonorRetryAfter(enabled bool) Option {
	return func(cfg *posterConfig) error {
		cfg.honorRetryAfter = enabled
		return nil
	}
}

// WithRateLimit caps the combined send rate across all channels.
//
// perSecond may be fractional (0.5 = one send every two seconds). Zero
// disables the limiter. burst below 1 is treated as 1.
//
// Returns an error if perSecond is negative.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *posterConfig) error {
		if perSecond < 0 {
			return errors.New("rate limit cannot be negative")
		}
		if burst < 1 {
			burst = 1
		}
		cfg.ratePerSecond = perSecond
		cfg.burst = burst
		return nil
	}
}

// WithStatusAddr serves a read-only status endpoint on addr ("host:port")
// while the poster runs: GET /api/stats returns the sent counter and
// per-task tallies as JSON, GET /healthz answers 200.
//
// Disabled by default. Returns an error if addr has no port.
func WithStatusAddr(addr string) Option {
	return func(cfg *posterConfig) error {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return errors.New("invalid status address: " + err.Error())
		}
		cfg.statusAddr = addr
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *posterConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSendCallback registers a function to be called after every send
// attempt, successful or not.
//
// Multiple callbacks run in registration order. Callbacks are invoked
// synchronously from a single goroutine and must not block; panics are
// recovered and logged.
//
// Example:
//
//	p, err := autoposter.New(
//	    autoposter.WithToken(token),
//	    autoposter.WithChannel(ch),
//	    autoposter.WithSendCallback(func(r autoposter.SendResult) {
//	        if r.Outcome == autoposter.OutcomeForbidden {
//	            log.Printf("lost access to %s", r.ChannelID)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSendCallback(cb func(SendResult)) Option {
	return func(cfg *posterConfig) error {
		if cb == nil {
			return nil
		}
		cfg.sendCallbacks = append(cfg.sendCallbacks, cb)
		return nil
	}
}
