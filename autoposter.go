package autoposter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jpalmerr/autoposter/internal/scheduler"
	"github.com/jpalmerr/autoposter/internal/sender"
	"github.com/jpalmerr/autoposter/internal/server"
	"github.com/jpalmerr/autoposter/internal/store"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultGracePeriod    = 2 * time.Second
)

// ErrVerification is returned by [Poster.Start] when the token is rejected.
// Use errors.Is to detect it; the wrapped error carries the HTTP status.
var ErrVerification = errors.New("credential verification failed")

// ErrAlreadyStarted is returned by [Poster.Start] on a second call.
var ErrAlreadyStarted = errors.New("poster already started")

// Poster posts every configured channel's message on that channel's interval.
//
// Poster verifies the token, then runs one independent posting task per
// [Channel]. It is created using [New] with functional options and started
// with [Poster.Start].
//
// The typical lifecycle is:
//
//	p, err := autoposter.New(
//	    autoposter.WithToken(token),
//	    autoposter.WithChannel(ch),
//	)
//	if err != nil {
//	    slog.Error("failed to create poster", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	p.Start(ctx) // blocks until ctx is cancelled
//
// A Poster runs once; create a new one to run again.
type Poster struct {
	token           sender.Credential
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

	state *scheduler.RunState
	stats store.Store

	mu           sync.Mutex
	started      bool
	stopped      bool
	sched        *scheduler.Scheduler
	sender       *sender.Sender
	consumerDone chan struct{}
	status       *server.Server
	stopStatus   context.CancelFunc
	stopOnce     sync.Once
}

// New creates a [Poster] with the given options.
//
// A token ([WithToken]) and at least one channel ([WithChannel] or
// [WithChannels]) are required. Other options have defaults:
//   - Request timeout: 15 seconds
//   - Grace period: 2 seconds
//   - No display, no shared rate limit, retry hints logged only
//   - No status endpoint
//
// Returns an error if a required option is missing or any option is invalid.
func New(opts ...Option) (*Poster, error) {
	cfg := &posterConfig{
		requestTimeout: defaultRequestTimeout,
		gracePeriod:    defaultGracePeriod,
		burst:          1,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.token == "" {
		return nil, errors.New("a token is required")
	}
	if len(cfg.channels) == 0 {
		return nil, errors.New("at least one channel is required")
	}
	for i, c := range cfg.channels {
		if c.id == "" || c.interval < MinInterval {
			return nil, fmt.Errorf("channels[%d]: not created with NewChannel", i)
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poster{
		token:           sender.Credential(cfg.token),
		channels:        cfg.channels,
		baseURL:         cfg.baseURL,
		requestTimeout:  cfg.requestTimeout,
		gracePeriod:     cfg.gracePeriod,
		display:         cfg.display,
		honorRetryAfter: cfg.honorRetryAfter,
		ratePerSecond:   cfg.ratePerSecond,
		burst:           cfg.burst,
		statusAddr:      cfg.statusAddr,
		logger:          logger,
		sendCallbacks:   cfg.sendCallbacks,
		stats:           store.NewMemoryStore(),
	}
	p.state = scheduler.NewRunState(p.showSent)
	return p, nil
}

// Channels returns a copy of the configured channels.
func (p *Poster) Channels() []Channel {
	return append([]Channel(nil), p.channels...)
}

// Sent returns the number of messages accepted by the API so far.
func (p *Poster) Sent() uint64 {
	return p.state.Sent()
}

// Stats returns per-task send tallies, ordered by task key. Tasks that have
// not attempted a send yet are omitted.
func (p *Poster) Stats() []ChannelStats {
	all := p.stats.GetAll()
	out := make([]ChannelStats, len(all))
	for i, st := range all {
		out[i] = ChannelStats{
			Key:           st.Key,
			ChannelID:     st.ChannelID,
			Sent:          st.Sent,
			Failed:        st.Failed,
			LastOutcome:   OutcomeKind(st.LastOutcome),
			LastAttemptAt: st.LastAttemptAt,
			LastSuccessAt: st.LastSuccessAt,
		}
	}
	return out
}

// Start verifies the token and runs all posting tasks.
//
// Start is a blocking call that runs until ctx is cancelled or [Poster.Stop]
// is called. During execution:
//
//   - The display shows "Messages sent: 0"
//   - The token is checked against the current-identity endpoint
//   - Each channel posts immediately, then once per interval
//   - Every attempt is logged; failures never stop a channel
//
// If verification fails, no channel is started and Start returns an error
// wrapping [ErrVerification]. Returns nil after a clean shutdown.
func (p *Poster) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.mu.Unlock()

	p.logger.Info("autoposter starting", "channels", len(p.channels))
	p.state.Refresh()

	if ctx.Err() != nil || !p.state.Running() {
		return nil
	}

	snd := sender.New(p.token, p.baseURL, p.requestTimeout, p.logger)

	user, err := snd.Verify(ctx)
	if err != nil {
		snd.Close()
		if ctx.Err() != nil {
			return nil
		}
		p.logger.Error("token verification failed", "error", err)
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	p.logger.Info("logged in", "user", user.Tag(), "user_id", user.ID)

	var status *server.Server
	stopStatus := context.CancelFunc(func() {})
	if p.statusAddr != "" {
		statusCtx, cancel := context.WithCancel(context.Background())
		status = server.NewServer(p.stats, p.Sent, p.statusAddr, p.logger)
		if err := status.Start(statusCtx); err != nil {
			cancel()
			snd.Close()
			return err
		}
		stopStatus = cancel
	}

	sched := scheduler.New(p.toTasks(), snd, p.state, p.schedulerOptions(), p.logger)
	consumerDone := make(chan struct{})

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		stopStatus()
		snd.Close()
		return nil
	}
	p.sched = sched
	p.sender = snd
	p.consumerDone = consumerDone
	p.status = status
	p.stopStatus = stopStatus
	p.mu.Unlock()

	go p.consumeResults(sched.Results(), consumerDone)

	sched.Start(ctx)
	p.logger.Info("all posting tasks started", "count", len(p.channels))

	select {
	case <-ctx.Done():
	case <-p.state.Done():
	}

	p.Stop()
	p.logger.Info("shutdown complete", "sent", p.Sent())
	return nil
}

// Stop signals every posting task to stop and waits for them.
//
// Tasks waiting for their next tick stop at once; a send already on the
// wire is allowed to finish. Stop waits at most the grace period
// ([WithGracePeriod]) and then returns regardless.
//
// Stop is idempotent and safe to call before Start, concurrently with
// Start, or from another goroutine while Start is blocking.
func (p *Poster) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		sched, snd, consumerDone, stopStatus := p.sched, p.sender, p.consumerDone, p.stopStatus
		p.mu.Unlock()

		p.state.Stop()
		if sched == nil {
			return
		}

		p.logger.Info("stopping all posting tasks", "grace_period", p.gracePeriod.String())

		ctx, cancel := context.WithTimeout(context.Background(), p.gracePeriod)
		defer cancel()

		if err := sched.Stop(ctx); err != nil {
			p.logger.Warn("grace period elapsed with sends still in flight",
				"grace_period", p.gracePeriod.String(),
			)
		} else {
			select {
			case <-consumerDone:
			case <-ctx.Done():
			}
		}
		snd.Close()
		stopStatus()

		p.logSummary()
	})
}

// StatusAddr returns the address the status endpoint is bound to, or "" when
// it is disabled or not running yet.
func (p *Poster) StatusAddr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil || p.status.Addr() == nil {
		return ""
	}
	return p.status.Addr().String()
}

// showSent is the RunState display hook; it runs under the counter lock.
func (p *Poster) showSent(n uint64) {
	if p.display != nil {
		p.display.SetTitle(sentTitle(n))
	}
}

// toTasks converts channels to scheduler tasks. Repeated channel ids get
// "#2", "#3", ... suffixed keys so their tallies stay apart.
func (p *Poster) toTasks() []scheduler.Task {
	tasks := make([]scheduler.Task, len(p.channels))
	seen := make(map[string]int, len(p.channels))

	for i, c := range p.channels {
		seen[c.id]++
		key := c.id
		if n := seen[c.id]; n > 1 {
			key = fmt.Sprintf("%s#%d", c.id, n)
		}
		tasks[i] = scheduler.Task{
			Key:       key,
			ChannelID: c.id,
			Message:   c.message,
			Interval:  c.interval,
		}
	}
	return tasks
}

func (p *Poster) schedulerOptions() scheduler.Options {
	opts := scheduler.Options{HonorRetryAfter: p.honorRetryAfter}
	if p.ratePerSecond > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(p.ratePerSecond), p.burst)
	}
	return opts
}

// consumeResults records stats and fans results out to callbacks until the
// scheduler closes the results channel.
func (p *Poster) consumeResults(results <-chan scheduler.Result, done chan<- struct{}) {
	defer close(done)

	for r := range results {
		attempt := store.Attempt{
			Key:        r.Task.Key,
			ChannelID:  r.Task.ChannelID,
			Outcome:    string(r.Outcome.Kind),
			StatusCode: r.Outcome.StatusCode,
			At:         r.Outcome.SentAt,
		}
		if r.Outcome.Error != nil {
			attempt.Error = r.Outcome.Error.Error()
		}
		p.stats.Record(attempt)

		if len(p.sendCallbacks) == 0 {
			continue
		}
		public := toSendResult(r)
		for _, cb := range p.sendCallbacks {
			p.invokeCallbackSafe(cb, public)
		}
	}
}

// invokeCallbackSafe calls a send callback with panic recovery.
// The stack is logged with a correlation id; the panic does not propagate.
func (p *Poster) invokeCallbackSafe(cb func(SendResult), result SendResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("send callback panicked",
				"correlation_id", uuid.NewString(),
				"panic", fmt.Sprintf("%v", r),
				"channel", result.ChannelID,
				"stack", string(debug.Stack()),
			)
		}
	}()
	cb(result)
}

func (p *Poster) logSummary() {
	for _, st := range p.stats.GetAll() {
		p.logger.Info("channel summary",
			"channel", st.ChannelID,
			"task", st.Key,
			"sent", st.Sent,
			"failed", st.Failed,
			"last_outcome", st.LastOutcome,
		)
	}
}

func toSendResult(r scheduler.Result) SendResult {
	return SendResult{
		ChannelID:  r.Task.ChannelID,
		Key:        r.Task.Key,
		Outcome:    OutcomeKind(r.Outcome.Kind),
		StatusCode: r.Outcome.StatusCode,
		RetryAfter: r.Outcome.RetryAfter,
		Latency:    r.Outcome.Latency,
		SentAt:     r.Outcome.SentAt,
		AttemptID:  r.Outcome.AttemptID,
		Error:      r.Outcome.Error,
	}
}
