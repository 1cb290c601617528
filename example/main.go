// Demo of the autoposter SDK against a local mock API.
//
// Usage:
//
//	go run ./example
//
// While it runs, the CLI can share the same mock API:
//
//	go run ./cmd/autoposter run -c example/config.json
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/autoposter"
	"github.com/jpalmerr/autoposter/title"
)

func main() {
	// start mock API (see mock_server.go)
	go StartMockAPI(":9999")
	time.Sleep(100 * time.Millisecond)

	specs := []struct {
		id       string
		message  string
		interval time.Duration
	}{
		{"1001", "fast channel", 3 * time.Second},
		{"1002", "slow channel", 10 * time.Second},
		{"4030", "no access here", 5 * time.Second},
		{"4040", "this channel is gone", 5 * time.Second},
	}

	var channels []autoposter.Channel
	for _, s := range specs {
		ch, err := autoposter.NewChannel(s.id, s.message, s.interval)
		if err != nil {
			slog.Error("failed to create channel", "channel", s.id, "error", err)
			os.Exit(1)
		}
		channels = append(channels, ch)
	}

	p, err := autoposter.New(
		autoposter.WithToken("demo-token"),
		autoposter.WithAPIBaseURL("http://localhost:9999"),
		autoposter.WithChannels(channels...),
		autoposter.WithHonorRetryAfter(true),
		autoposter.WithDisplay(title.NewTerminal(os.Stdout)),
		autoposter.WithSendCallback(func(r autoposter.SendResult) {
			if !r.OK() {
				fmt.Printf("  ! %s: %s\n", r.ChannelID, r.Outcome)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create poster", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  autoposter demo")
	fmt.Println()
	fmt.Println("  Posting to a mock API on :9999:")
	fmt.Println("  • 1001 every 3s, 1002 every 10s (every 5th post is rate limited)")
	fmt.Println("  • 4030 answers 403, 4040 answers 404")
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		slog.Error("poster failed", "error", err)
		os.Exit(1)
	}

	for _, st := range p.Stats() {
		fmt.Printf("  %-6s sent=%d failed=%d last=%s\n", st.Key, st.Sent, st.Failed, st.LastOutcome)
	}
}
