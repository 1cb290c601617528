package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jpalmerr/autoposter/internal/sender"
)

// Task is one channel's posting job.
type Task struct {
	// Key uniquely identifies the task, even when a channel id repeats.
	Key string

	ChannelID string
	Message   string
	Interval  time.Duration
}

// Poster performs a single send attempt. *sender.Sender implements it.
type Poster interface {
	Send(ctx context.Context, channelID, message string) sender.Outcome
}

// Result is emitted after every send attempt.
type Result struct {
	Task    Task
	Outcome sender.Outcome
}

// Options tunes the loops. The zero value posts on the plain interval with
// no shared limiter.
type Options struct {
	// Limiter, when set, is waited on before every send across all channels.
	Limiter *rate.Limiter

	// HonorRetryAfter shortens the wait after a rate-limited attempt to the
	// server's retry hint when that hint is shorter than the interval.
	HonorRetryAfter bool
}

// Scheduler runs one goroutine per [Task].
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	tasks   []Task
	poster  Poster
	state   *RunState
	opts    Options
	results chan Result
	logger  *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	exited    chan struct{}
}

// New creates a [Scheduler]. Nothing runs until [Scheduler.Start].
func New(tasks []Task, poster Poster, state *RunState, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		tasks:   tasks,
		poster:  poster,
		state:   state,
		opts:    opts,
		results: make(chan Result, len(tasks)),
		logger:  logger,
		exited:  make(chan struct{}),
	}
}

// Results returns the channel of send results.
//
// The channel is closed once every loop has exited. Consumers should read
// until it is closed; a full buffer holds back the sending loop.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Start launches one loop per task and returns immediately.
//
// Start is idempotent. If Stop was called before Start, Start is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	var runCtx context.Context
	runCtx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(len(s.tasks))
	for _, t := range s.tasks {
		go s.runChannel(runCtx, t)
	}

	go func() {
		s.wg.Wait()
		s.closeOnce.Do(func() { close(s.results) })
		close(s.exited)
	}()
}

// Stop clears the running flag and waits for the loops to exit.
//
// In-flight sends are not interrupted. Stop returns ctx.Err() if ctx ends
// before every loop has exited; the loops still exit on their own once their
// current send completes. Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		s.state.Stop()
		if s.cancel != nil {
			s.cancel()
		}
	}
	started := s.started
	s.mu.Unlock()

	if !started {
		s.closeOnce.Do(func() { close(s.results) })
		return nil
	}

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runChannel is the per-channel loop: post, wait, repeat until stopped.
func (s *Scheduler) runChannel(ctx context.Context, t Task) {
	defer s.wg.Done()

	logger := s.logger.With("channel", t.ChannelID)
	logger.Info("posting task started", "interval", t.Interval.String())
	defer logger.Info("posting task stopped")

	// a stop request must not abort a send that is already on the wire
	sendCtx := context.WithoutCancel(ctx)

	for s.state.Running() {
		if s.opts.Limiter != nil {
			if err := s.opts.Limiter.Wait(ctx); err != nil {
				return
			}
			if !s.state.Running() {
				return
			}
		}

		out := s.poster.Send(sendCtx, t.ChannelID, t.Message)
		if out.OK() {
			s.state.RecordSuccess()
		}
		s.emit(ctx, Result{Task: t, Outcome: out})

		wait := s.nextWait(t, out)
		if wait != t.Interval {
			logger.Info("honoring retry hint", "wait", wait.String())
		}
		if !s.state.Sleep(ctx, wait) {
			return
		}
	}
}

// nextWait returns how long to wait before the next attempt.
func (s *Scheduler) nextWait(t Task, out sender.Outcome) time.Duration {
	if s.opts.HonorRetryAfter &&
		out.Kind == sender.KindRateLimited &&
		out.RetryAfter > 0 &&
		out.RetryAfter < t.Interval {
		return out.RetryAfter
	}
	return t.Interval
}

// emit delivers r to the results channel. Once ctx is cancelled a result is
// dropped rather than blocking shutdown on a consumer that went away.
func (s *Scheduler) emit(ctx context.Context, r Result) {
	select {
	case s.results <- r:
		return
	default:
	}

	select {
	case s.results <- r:
	case <-ctx.Done():
		s.logger.Debug("result dropped during shutdown", "channel", r.Task.ChannelID)
	}
}
