package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jpalmerr/autoposter"
	"github.com/jpalmerr/autoposter/config"
	"github.com/jpalmerr/autoposter/title"
	"github.com/spf13/cobra"
)

// shutdownTimeout caps the wait after a signal, on top of the poster's own
// grace period.
const shutdownTimeout = 10 * time.Second

// runCmd starts posting.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start posting to all configured channels",
	Long: `Start posting to all configured channels.

The poster will:
  - Load configuration from the config file (config.json by default)
  - Verify the token before anything is posted
  - Post to every channel immediately, then once per interval
  - Show "Messages sent: N" in the terminal title

It runs until interrupted (Ctrl+C) or it receives SIGTERM.

Exit codes:
  0 - Stopped by a signal
  1 - Config could not be loaded, or the token was rejected

Example:
  autoposter run
  autoposter run -c /etc/autoposter/config.yaml --log-format json
  autoposter run --status-addr 127.0.0.1:8080`,
	RunE: runPoster,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", config.DefaultPath, "path to config file")
	runCmd.Flags().String("log-format", "text", "log format: text or json")
	runCmd.Flags().String("log-level", "info", "log level: debug, info, warn or error")
	runCmd.Flags().Bool("no-title", false, "do not update the terminal title")
	runCmd.Flags().String("status-addr", "", "serve the status endpoint on host:port (overrides status_addr)")
}

// newLogger creates the CLI logger on w.
func newLogger(w io.Writer, format, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected text or json)", format)
	}
}

// loadConfig loads the config file, turning a missing file into a short
// diagnostic.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config file %q not found", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runPoster(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	logFormat, _ := cmd.Flags().GetString("log-format")
	logLevel, _ := cmd.Flags().GetString("log-level")
	noTitle, _ := cmd.Flags().GetBool("no-title")
	statusAddr, _ := cmd.Flags().GetString("status-addr")

	logger, err := newLogger(cmd.ErrOrStderr(), logFormat, logLevel)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	if statusAddr != "" {
		cfg.StatusAddr = statusAddr
	}

	logger.Info("config loaded",
		"path", configFile,
		"channels", len(cfg.Channels),
		"honor_retry_after", cfg.HonorRetryAfter,
		"status_addr", cfg.StatusAddr,
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build channels: %w", err)
	}
	opts = append(opts, autoposter.WithLogger(logger))
	if !noTitle {
		display := title.NewTerminal(os.Stdout)
		if !display.Enabled() {
			logger.Debug("stdout is not a terminal, window title disabled")
		}
		opts = append(opts, autoposter.WithDisplay(display))
	}

	poster, err := autoposter.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create poster: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- poster.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err

	case <-ctx.Done():
		logger.Info("stopping all tasks")
		select {
		case err := <-errChan:
			return err
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
