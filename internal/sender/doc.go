// Package sender talks to the remote messaging API on behalf of autoposter.
//
// This package is internal to autoposter and performs exactly one HTTP
// request per call. It never retries; retry and pacing decisions belong to
// the scheduler.
//
// The main components are:
//
//   - [Client]: HTTP client wrapper with pooled connections and size limits
//   - [Sender]: posts messages and verifies the credential
//   - [Outcome]: classified result of one send attempt
//   - [Credential]: the token, redacted whenever it is printed or logged
package sender
