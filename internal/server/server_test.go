package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/autoposter/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func populatedStore() *store.MemoryStore {
	ms := store.NewMemoryStore()
	ms.Record(store.Attempt{Key: "1", ChannelID: "1", Outcome: "success", StatusCode: 200, At: time.Now()})
	ms.Record(store.Attempt{Key: "2", ChannelID: "2", Outcome: "forbidden", StatusCode: 403, At: time.Now()})
	return ms
}

func TestHandleStats_ReturnsSnapshot(t *testing.T) {
	srv := NewServer(populatedStore(), func() uint64 { return 1 }, ":0", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if snap.Sent != 1 {
		t.Errorf("Sent = %d, want 1", snap.Sent)
	}
	if len(snap.Channels) != 2 {
		t.Fatalf("len(Channels) = %d, want 2", len(snap.Channels))
	}
	if snap.Channels[1].LastOutcome != "forbidden" || snap.Channels[1].Failed != 1 {
		t.Errorf("Channels[1] = %+v, want one forbidden failure", snap.Channels[1])
	}
}

func TestHandleStats_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), func() uint64 { return 0 }, ":0", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stats", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), func() uint64 { return 0 }, ":0", testLogger())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want ok status", rec.Body.String())
	}
}

func TestStart_ServesUntilCancelled(t *testing.T) {
	srv := NewServer(populatedStore(), func() uint64 { return 1 }, "127.0.0.1:0", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	url := "http://" + srv.Addr().String() + "/api/stats"
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()

	// listener closes shortly after cancellation
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", srv.Addr().String(), 100*time.Millisecond)
		if err != nil {
			return
		}
		_ = conn.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("server still accepting connections after context cancellation")
}

func TestStart_AddressInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	srv := NewServer(store.NewMemoryStore(), func() uint64 { return 0 }, ln.Addr().String(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied address should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestAddr_NilBeforeStart(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(), func() uint64 { return 0 }, ":0", testLogger())
	if srv.Addr() != nil {
		t.Errorf("Addr() = %v, want nil before Start", srv.Addr())
	}
}
