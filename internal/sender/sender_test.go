package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_ClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   Kind
		wantRetry  time.Duration
		wantReason string
	}{
		{name: "ok", status: http.StatusOK, body: `{"id":"1"}`, wantKind: KindSuccess},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{"retry_after": 5}`, wantKind: KindRateLimited, wantRetry: 5 * time.Second, wantReason: "rate limited"},
		{name: "rate limited fractional", status: http.StatusTooManyRequests, body: `{"retry_after": 1.5, "global": false}`, wantKind: KindRateLimited, wantRetry: 1500 * time.Millisecond, wantReason: "rate limited"},
		{name: "rate limited no hint", status: http.StatusTooManyRequests, body: `{}`, wantKind: KindRateLimited, wantRetry: DefaultRetryAfter, wantReason: "rate limited"},
		{name: "rate limited garbage", status: http.StatusTooManyRequests, body: `slow down`, wantKind: KindRateLimited, wantRetry: DefaultRetryAfter, wantReason: "rate limited"},
		{name: "rate limited negative hint", status: http.StatusTooManyRequests, body: `{"retry_after": -1}`, wantKind: KindRateLimited, wantRetry: DefaultRetryAfter, wantReason: "rate limited"},
		{name: "rate limited hint beyond duration range", status: http.StatusTooManyRequests, body: `{"retry_after": 1e10}`, wantKind: KindRateLimited, wantRetry: DefaultRetryAfter, wantReason: "rate limited"},
		{name: "rate limited huge hint", status: http.StatusTooManyRequests, body: `{"retry_after": 1e300}`, wantKind: KindRateLimited, wantRetry: DefaultRetryAfter, wantReason: "rate limited"},
		{name: "rate limited largest hint", status: http.StatusTooManyRequests, body: `{"retry_after": 9e9}`, wantKind: KindRateLimited, wantRetry: 9e9 * time.Second, wantReason: "rate limited"},
		{name: "forbidden", status: http.StatusForbidden, wantKind: KindForbidden, wantReason: "no permission to post in this channel"},
		{name: "not found", status: http.StatusNotFound, wantKind: KindNotFound, wantReason: "channel not found"},
		{name: "created is not 200", status: http.StatusCreated, wantKind: KindOther, wantReason: "unexpected status"},
		{name: "server error", status: http.StatusBadGateway, wantKind: KindOther, wantReason: "unexpected status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s := New("token", server.URL, time.Second, testLogger())
			defer s.Close()

			out := s.Send(context.Background(), "123", "hello")

			if out.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", out.Kind, tt.wantKind)
			}
			if out.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", out.StatusCode, tt.status)
			}
			if out.RetryAfter != tt.wantRetry {
				t.Errorf("RetryAfter = %v, want %v", out.RetryAfter, tt.wantRetry)
			}
			if out.Reason() != tt.wantReason {
				t.Errorf("Reason() = %q, want %q", out.Reason(), tt.wantReason)
			}
			if out.AttemptID == "" {
				t.Error("AttemptID should not be empty")
			}
			if out.SentAt.IsZero() {
				t.Error("SentAt should not be zero")
			}
		})
	}
}

func TestSend_RequestShape(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotAuth   string
		gotType   string
		gotBody   map[string]string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := New("secret-token", server.URL+"/", time.Second, testLogger())
	out := s.Send(context.Background(), "987654321", "hello world")
	if !out.OK() {
		t.Fatalf("Send() kind = %q, want success", out.Kind)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotPath != "/channels/987654321/messages" {
		t.Errorf("path = %q, want /channels/987654321/messages", gotPath)
	}
	if gotAuth != "secret-token" {
		t.Errorf("Authorization = %q, want raw token", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
	if gotBody["content"] != "hello world" {
		t.Errorf("content = %q, want %q", gotBody["content"], "hello world")
	}
}

func TestSend_TransportFailureIsOther(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // nothing listening any more

	s := New("token", url, time.Second, testLogger())
	out := s.Send(context.Background(), "1", "hello")

	if out.Kind != KindOther {
		t.Errorf("Kind = %q, want %q", out.Kind, KindOther)
	}
	if out.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", out.StatusCode)
	}
	if out.Error == nil {
		t.Error("Error should be set for transport failures")
	}
	if out.Reason() != "request failed" {
		t.Errorf("Reason() = %q, want %q", out.Reason(), "request failed")
	}
}

func TestSend_TimeoutIsOther(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s := New("token", server.URL, 50*time.Millisecond, testLogger())
	out := s.Send(context.Background(), "1", "hello")

	if out.Kind != KindOther || out.Error == nil {
		t.Errorf("got kind %q error %v, want other with error", out.Kind, out.Error)
	}
}

func TestSend_LogsOutcomeWithoutToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"retry_after": 5}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	token := Credential("super-secret")
	s := New(token, server.URL, time.Second, logger)
	logger.Info("sender ready", "token", token)
	_ = s.Send(context.Background(), "42", "hello")

	out := buf.String()
	if strings.Contains(out, "super-secret") {
		t.Errorf("log output leaked the token: %s", out)
	}
	for _, want := range []string{"failed to post message", "channel=42", "reason=\"rate limited\"", "retry_after=5s", "time="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q\nGot: %s", want, out)
		}
	}
}

func TestVerify_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			t.Errorf("path = %q, want /users/@me", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		_, _ = w.Write([]byte(`{"id":"80351110224678912","username":"nelly","discriminator":"1337"}`))
	}))
	defer server.Close()

	s := New("token", server.URL, time.Second, testLogger())
	user, err := s.Verify(context.Background())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if user.ID != "80351110224678912" {
		t.Errorf("ID = %q", user.ID)
	}
	if user.Tag() != "nelly#1337" {
		t.Errorf("Tag() = %q, want nelly#1337", user.Tag())
	}
}

func TestVerify_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "401: Unauthorized", "code": 0}`))
	}))
	defer server.Close()

	s := New("bad", server.URL, time.Second, testLogger())
	_, err := s.Verify(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Verify() error = %v, want *AuthError", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", authErr.StatusCode)
	}
	if !strings.Contains(authErr.Error(), "401: Unauthorized") {
		t.Errorf("error should include the response body, got %q", authErr.Error())
	}
}

func TestUser_Tag(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{Username: "a", Discriminator: "0001"}, "a#0001"},
		{User{Username: "b", Discriminator: "0"}, "b"},
		{User{Username: "c"}, "c"},
	}
	for _, tt := range tests {
		if got := tt.user.Tag(); got != tt.want {
			t.Errorf("Tag() = %q, want %q", got, tt.want)
		}
	}
}

func TestCredential_Redacted(t *testing.T) {
	c := Credential("abc")
	if c.String() != "[redacted]" {
		t.Errorf("String() = %q", c.String())
	}
	if c.LogValue().String() != "[redacted]" {
		t.Errorf("LogValue() = %q", c.LogValue().String())
	}
}
