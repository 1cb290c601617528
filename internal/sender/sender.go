package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the Discord REST API root.
	DefaultBaseURL = "https://discord.com/api/v10"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second

	userAgent = "autoposter (https://github.com/jpalmerr/autoposter)"

	// maxErrorBody caps how much of an error body ends up in logs and errors.
	maxErrorBody = 512
)

// Credential is the authentication token for the posting identity.
//
// The value is sent verbatim in the Authorization header and is redacted
// whenever it is formatted or logged.
type Credential string

// String implements fmt.Stringer without revealing the token.
func (c Credential) String() string {
	return "[redacted]"
}

// LogValue implements slog.LogValuer without revealing the token.
func (c Credential) LogValue() slog.Value {
	return slog.StringValue("[redacted]")
}

// User is the identity returned by the verification call.
type User struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	GlobalName    string `json:"global_name"`
}

// Tag returns the display form of the user, "name#1234" for legacy
// accounts and "name" for accounts on the new username system.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// AuthError reports a non-200 answer to the verification call.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("token verification failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("token verification failed: status %d: %s", e.StatusCode, e.Body)
}

// Sender posts messages to channels using a single credential.
//
// Sender is safe for concurrent use; it holds no mutable state besides the
// pooled HTTP client.
type Sender struct {
	client  *Client
	baseURL string
	logger  *slog.Logger
}

// New creates a [Sender].
//
// An empty baseURL selects [DefaultBaseURL]; a non-positive timeout selects
// [DefaultTimeout]; a nil logger selects slog.Default().
func New(token Credential, baseURL string, timeout time.Duration, logger *slog.Logger) *Sender {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	header := http.Header{}
	header.Set("Authorization", string(token))
	header.Set("User-Agent", userAgent)

	return &Sender{
		client:  NewClient(header, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Verify checks the credential against the current-identity endpoint.
//
// Returns *AuthError when the API answers with anything but 200.
func (s *Sender) Verify(ctx context.Context) (User, error) {
	resp := s.client.Get(ctx, s.baseURL+"/users/@me")
	if resp.Error != nil {
		return User{}, fmt.Errorf("token verification failed: %w", resp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return User{}, &AuthError{StatusCode: resp.StatusCode, Body: truncate(string(resp.Body), maxErrorBody)}
	}

	var user User
	if err := json.Unmarshal(resp.Body, &user); err != nil {
		return User{}, fmt.Errorf("failed to decode current user: %w", err)
	}
	return user, nil
}

// Send posts message to the channel once and classifies the result.
//
// Send never retries and never returns an error: transport failures are
// reported as [KindOther] with the error attached. Every outcome is logged.
func (s *Sender) Send(ctx context.Context, channelID, message string) Outcome {
	attemptID := uuid.NewString()

	endpoint := s.baseURL + "/channels/" + url.PathEscape(channelID) + "/messages"
	out := classify(s.client.PostJSON(ctx, endpoint, messagePayload{Content: message}))
	out.AttemptID = attemptID
	out.SentAt = time.Now()

	s.logOutcome(channelID, out)
	return out
}

// messagePayload is the create-message request body.
type messagePayload struct {
	Content string `json:"content"`
}

// Close releases idle connections.
func (s *Sender) Close() {
	s.client.Close()
}

func (s *Sender) logOutcome(channelID string, out Outcome) {
	attrs := []any{
		"channel", channelID,
		"status_code", out.StatusCode,
		"latency_ms", out.Latency.Milliseconds(),
		"attempt_id", out.AttemptID,
	}

	if out.OK() {
		s.logger.Info("message posted", attrs...)
		return
	}

	attrs = append(attrs, "outcome", string(out.Kind), "reason", out.Reason())
	if out.Kind == KindRateLimited {
		attrs = append(attrs, "retry_after", out.RetryAfter.String())
	}
	if out.Error != nil {
		attrs = append(attrs, "error", out.Error.Error())
	}
	s.logger.Warn("failed to post message", attrs...)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
