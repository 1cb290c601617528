package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// mockChannel tracks how many posts a channel has received.
type mockChannel struct {
	posts int
}

// StartMockAPI runs a fake chat API on addr.
//
// GET /users/@me accepts any non-empty token. Posting to channel "403" or
// "404" answers with that status; every fifth post to any other channel is
// rate limited.
// Call this in a goroutine before starting the poster.
func StartMockAPI(addr string) {
	var (
		channels = make(map[string]*mockChannel)
		mu       sync.Mutex
	)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "401: Unauthorized", "code": 0})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "1", "username": "demo", "discriminator": "0"})
	})

	mux.HandleFunc("POST /channels/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		// simulate small latency variance
		time.Sleep(time.Duration(50+rand.Intn(150)) * time.Millisecond)

		switch {
		case strings.HasPrefix(id, "403"):
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "Missing Permissions", "code": 50013})
			return
		case strings.HasPrefix(id, "404"):
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Unknown Channel", "code": 10003})
			return
		}

		mu.Lock()
		ch, ok := channels[id]
		if !ok {
			ch = &mockChannel{}
			channels[id] = ch
		}
		ch.posts++
		n := ch.posts
		mu.Unlock()

		if n%5 == 0 {
			slog.Info("rate limiting", "channel", id, "post", n)
			writeJSON(w, http.StatusTooManyRequests, map[string]any{"message": "You are being rate limited.", "retry_after": 2.5, "global": false})
			return
		}

		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		slog.Info("message received", "channel", id, "content", body.Content)
		writeJSON(w, http.StatusOK, map[string]any{"id": time.Now().Format("150405.000"), "channel_id": id, "content": body.Content})
	})

	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("mock API server error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
