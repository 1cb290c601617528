package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jpalmerr/autoposter/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// context is cancelled.
const shutdownTimeout = 5 * time.Second

// StatsSource supplies the per-task tallies served at /api/stats.
type StatsSource interface {
	GetAll() []store.ChannelStats
}

// Snapshot is the /api/stats response body.
type Snapshot struct {
	Sent     uint64               `json:"sent"`
	Channels []store.ChannelStats `json:"channels"`
	At       time.Time            `json:"at"`
}

// Server serves the status endpoint.
type Server struct {
	stats      StatsSource
	sent       func() uint64
	addr       string
	listenAddr net.Addr
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a [Server] listening on addr ("host:port"; port 0 picks
// a free port).
//
// The server is not started until [Server.Start] is called.
func NewServer(stats StatsSource, sent func() uint64, addr string, logger *slog.Logger) *Server {
	return &Server{
		stats:  stats,
		sent:   sent,
		addr:   addr,
		logger: logger,
	}
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// runs until ctx is cancelled.
//
// Returns an error if the address cannot be bound.
func (s *Server) Start(ctx context.Context) error {
	// bind first so address problems surface synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind status address %s: %w", s.addr, err)
	}
	s.listenAddr = ln.Addr()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("status server shutdown error", "error", err)
		}
	}()

	s.logger.Info("status server listening", "addr", s.listenAddr.String())
	return nil
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	return s.listenAddr
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := Snapshot{
		Sent:     s.sent(),
		Channels: s.stats.GetAll(),
		At:       time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Error("failed to encode stats response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}
