package scheduler

import (
	"context"
	"sync"
	"time"
)

// RunState is the state shared by all channel loops.
//
// The running flag starts true and is cleared exactly once by [RunState.Stop].
// The sent counter only increases. Both are guarded by one mutex, and the
// display hook is invoked inside that same critical section so that the
// displayed value can never lag behind or overtake the counter.
type RunState struct {
	mu      sync.Mutex
	running bool
	sent    uint64
	display func(sent uint64)

	done chan struct{}
}

// NewRunState creates a running [RunState]. display may be nil.
func NewRunState(display func(sent uint64)) *RunState {
	return &RunState{
		running: true,
		display: display,
		done:    make(chan struct{}),
	}
}

// Running reports whether the loops should keep posting.
func (s *RunState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sent returns the number of successful sends so far.
func (s *RunState) Sent() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// RecordSuccess increments the sent counter and refreshes the display.
// Returns the new count.
func (s *RunState) RecordSuccess() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	if s.display != nil {
		s.display(s.sent)
	}
	return s.sent
}

// Refresh pushes the current count to the display without changing it.
func (s *RunState) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.display != nil {
		s.display(s.sent)
	}
}

// Stop clears the running flag and wakes every waiting loop.
// Returns true only for the call that actually stopped the state.
func (s *RunState) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return false
	}
	s.running = false
	close(s.done)
	return true
}

// Done returns a channel that is closed when the state is stopped.
func (s *RunState) Done() <-chan struct{} {
	return s.done
}

// Sleep waits for d unless the state is stopped or ctx is cancelled first.
// Returns true if the full duration elapsed and the state is still running.
func (s *RunState) Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return s.Running()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return s.Running()
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}
