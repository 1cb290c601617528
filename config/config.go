// Package config provides configuration file parsing for autoposter.
//
// This package enables running autoposter as a standalone binary with a
// configuration file. Files are parsed as YAML; since JSON is valid YAML, the
// classic config.json layout works unchanged.
//
// Example configuration (JSON):
//
//	{
//	  "token": "${DISCORD_TOKEN}",
//	  "channels": [
//	    {"channel_id": "1234567890", "message": "hello", "interval_minutes": 30}
//	  ]
//	}
//
// Example configuration (YAML):
//
//	token: ${DISCORD_TOKEN}
//	request_timeout: 15s
//	honor_retry_after: true
//	channels:
//	  - channel_id: "1234567890"
//	    message: hello
//	    interval_minutes: 30
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the file the CLI loads when no path is given.
const DefaultPath = "config.json"

const (
	defaultAPIBaseURL     = "https://discord.com/api/v10"
	defaultRequestTimeout = 15 * time.Second
	defaultGracePeriod    = 2 * time.Second

	minRequestTimeout = time.Second
	maxRequestTimeout = 2 * time.Minute
	maxGracePeriod    = time.Minute

	// maxMessageLength mirrors the API's content limit.
	maxMessageLength = 2000

	// maxIntervalMinutes keeps the interval within time.Duration.
	maxIntervalMinutes = int64(math.MaxInt64 / time.Minute)
)

// Config is the root configuration structure for autoposter.
//
// Use [Load] or [Parse] to create a Config.
type Config struct {
	// Token authenticates every request.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	Token string `yaml:"token"`

	// Channels lists the posting tasks, one per entry.
	Channels []ChannelConfig `yaml:"channels"`

	// APIBaseURL is the API root. Defaults to https://discord.com/api/v10.
	APIBaseURL string `yaml:"api_base_url"`

	// RequestTimeout bounds each HTTP request. Defaults to 15s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// GracePeriod bounds how long shutdown waits for in-flight sends.
	// Defaults to 2s.
	GracePeriod Duration `yaml:"grace_period"`

	// HonorRetryAfter retries after the server's rate-limit hint instead of
	// waiting the full interval.
	HonorRetryAfter bool `yaml:"honor_retry_after"`

	// MaxSendsPerSecond caps the combined send rate. 0 means unlimited.
	MaxSendsPerSecond float64 `yaml:"max_sends_per_second"`

	// Burst is the limiter burst size. Defaults to 1.
	Burst int `yaml:"burst"`

	// StatusAddr enables the HTTP status endpoint on "host:port".
	// Empty disables it.
	StatusAddr string `yaml:"status_addr"`
}

// ChannelConfig defines a single posting task.
type ChannelConfig struct {
	// ChannelID is the target channel. Numeric ids may be written unquoted.
	ChannelID string `yaml:"channel_id"`

	// Message is the text posted on every tick.
	Message string `yaml:"message"`

	// IntervalMinutes is the time between posts, in whole minutes.
	IntervalMinutes int `yaml:"interval_minutes"`
}

// Interval returns the posting interval as a duration.
func (c ChannelConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a configuration file.
//
// A missing file yields an error wrapping os.ErrNotExist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML (or JSON) configuration data.
//
// The token and API base URL are environment-expanded. Defaults are applied
// for APIBaseURL, RequestTimeout, GracePeriod and Burst.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = Duration(defaultGracePeriod)
	}
	if cfg.Burst == 0 {
		cfg.Burst = 1
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	token, err := expandEnvVars(c.Token)
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	c.Token = strings.TrimSpace(token)
	if c.Token == "" {
		return errors.New("token is required")
	}

	base, err := expandEnvVars(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api_base_url: %w", err)
	}
	c.APIBaseURL = base
	parsedURL, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api_base_url: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("api_base_url scheme must be http or https, got %q", parsedURL.Scheme)
	}

	if d := c.RequestTimeout.Duration(); d < minRequestTimeout || d > maxRequestTimeout {
		return fmt.Errorf("request_timeout must be between %s and %s, got %s", minRequestTimeout, maxRequestTimeout, d)
	}
	if d := c.GracePeriod.Duration(); d < 0 || d > maxGracePeriod {
		return fmt.Errorf("grace_period must be between 0s and %s, got %s", maxGracePeriod, d)
	}
	if c.MaxSendsPerSecond < 0 {
		return fmt.Errorf("max_sends_per_second cannot be negative, got %g", c.MaxSendsPerSecond)
	}
	if c.Burst < 1 {
		return fmt.Errorf("burst must be at least 1, got %d", c.Burst)
	}
	if c.StatusAddr != "" {
		if _, _, err := net.SplitHostPort(c.StatusAddr); err != nil {
			return fmt.Errorf("invalid status_addr %q: %w", c.StatusAddr, err)
		}
	}

	if len(c.Channels) == 0 {
		return errors.New("at least one channel must be defined")
	}

	for i := range c.Channels {
		ch := &c.Channels[i]
		ch.ChannelID = strings.TrimSpace(ch.ChannelID)

		if ch.ChannelID == "" {
			return fmt.Errorf("channels[%d]: channel_id is required", i)
		}
		if strings.TrimSpace(ch.Message) == "" {
			return fmt.Errorf("channels[%d] (%s): message is required", i, ch.ChannelID)
		}
		if n := utf8.RuneCountInString(ch.Message); n > maxMessageLength {
			return fmt.Errorf("channels[%d] (%s): message is %d characters, limit is %d", i, ch.ChannelID, n, maxMessageLength)
		}
		if ch.IntervalMinutes <= 0 {
			return fmt.Errorf("channels[%d] (%s): interval_minutes must be positive, got %d", i, ch.ChannelID, ch.IntervalMinutes)
		}
		if int64(ch.IntervalMinutes) > maxIntervalMinutes {
			return fmt.Errorf("channels[%d] (%s): interval_minutes must be at most %d, got %d", i, ch.ChannelID, maxIntervalMinutes, ch.IntervalMinutes)
		}
	}

	return nil
}
