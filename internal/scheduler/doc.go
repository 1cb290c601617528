// Package scheduler runs one posting loop per channel.
//
// This package is internal to autoposter. Every [Task] gets its own
// goroutine that posts immediately, then waits its interval and posts again
// until the shared [RunState] is stopped. Loops share nothing but the
// RunState (running flag, sent counter, display hook) and an optional rate
// limiter; sends for one channel never overlap.
//
// Results of every attempt are emitted on [Scheduler.Results], which is
// closed once all loops have exited.
package scheduler
