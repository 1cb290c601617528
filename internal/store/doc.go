// Package store keeps per-channel send tallies in memory.
//
// This package is internal to autoposter. Every send attempt is folded into
// a [ChannelStats] entry keyed by task key; the supervisor reads the
// snapshot for its shutdown summary and for Poster.Stats.
//
// Nothing is persisted: tallies start at zero on every run.
package store
