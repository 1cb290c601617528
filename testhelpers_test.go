package autoposter

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI is a minimal chat API: GET /users/@me answers with authStatus,
// POST /channels/{id}/messages answers with the status set for id (200 if
// unset).
type fakeAPI struct {
	server     *httptest.Server
	authStatus int
	statuses   map[string]int

	posts atomic.Int32
	mu    sync.Mutex
	auths []string
}

func newFakeAPI(t *testing.T, authStatus int, statuses map[string]int) *fakeAPI {
	t.Helper()

	api := &fakeAPI{authStatus: authStatus, statuses: statuses}
	api.server = httptest.NewServer(http.HandlerFunc(api.handle))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.auths = append(a.auths, r.Header.Get("Authorization"))
	a.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/users/@me":
		w.WriteHeader(a.authStatus)
		if a.authStatus == http.StatusOK {
			_, _ = io.WriteString(w, `{"id": "99", "username": "poster", "discriminator": "0"}`)
		}

	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/channels/"):
		a.posts.Add(1)
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/channels/"), "/messages")
		status, ok := a.statuses[id]
		if !ok {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if status == http.StatusTooManyRequests {
			_, _ = io.WriteString(w, `{"message": "You are being rate limited.", "retry_after": 3, "global": false}`)
			return
		}
		_, _ = io.WriteString(w, `{}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// titleRecorder is a Display that remembers every title it was given.
type titleRecorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *titleRecorder) SetTitle(title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *titleRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.titles...)
}

func mustChannel(t *testing.T, id, message string, interval time.Duration) Channel {
	t.Helper()

	ch, err := NewChannel(id, message, interval)
	if err != nil {
		t.Fatalf("NewChannel(%q) error = %v", id, err)
	}
	return ch
}
