// Package autoposter repeatedly posts predefined messages to a set of chat
// channels, each on its own interval, using a single authenticated identity.
//
// It is meant for unattended, long-running use: every channel runs as an
// independent task that posts once at start and then once per interval,
// logging every attempt. Rate limiting, missing permissions and unknown
// channels are logged and never stop a task. A single cancellation (for
// example Ctrl+C) stops every task promptly.
//
// # Quick Start
//
//	ch, _ := autoposter.NewChannel("1234567890", "hello", 30*time.Minute)
//	p, _ := autoposter.New(
//	    autoposter.WithToken(os.Getenv("DISCORD_TOKEN")),
//	    autoposter.WithChannel(ch),
//	    autoposter.WithDisplay(title.NewTerminal(os.Stdout)),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//
//	p.Start(ctx) // blocks until ctx is cancelled
//
// # Failure Handling
//
// Each attempt produces a [SendResult] whose [OutcomeKind] is one of
// [OutcomeSuccess], [OutcomeRateLimited], [OutcomeForbidden],
// [OutcomeNotFound] or [OutcomeOther]. Only successes increment the counter
// returned by [Poster.Sent]. A rate-limited channel waits its normal
// interval unless [WithHonorRetryAfter] is enabled.
//
// A token that fails verification aborts [Poster.Start] before any channel
// posts; the returned error wraps [ErrVerification].
//
// # Architecture
//
//   - internal/sender: HTTP client, message creation, token verification
//   - internal/scheduler: one goroutine per channel plus the shared run state
//   - internal/store: in-memory per-channel tallies
//   - internal/server: optional read-only HTTP status endpoint ([WithStatusAddr])
//   - config: YAML/JSON configuration loading for the CLI
//   - title: terminal window title display
//
// The internal packages are not part of the public API and may change
// without notice.
package autoposter
