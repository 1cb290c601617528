// Package server provides the optional HTTP status endpoint of a running
// poster.
//
// Two read-only routes are served:
//
//   - GET /api/stats: the sent counter and per-task tallies as JSON
//   - GET /healthz: liveness probe
//
// The server shuts down when its context is cancelled, with a 5-second
// timeout for in-flight requests. It is started by [autoposter.Poster.Start]
// when a status address is configured.
package server
