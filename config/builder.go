package config

import (
	"fmt"

	"github.com/jpalmerr/autoposter"
)

// BuildChannels converts parsed configuration into SDK Channel values,
// preserving file order.
func BuildChannels(cfg *Config) ([]autoposter.Channel, error) {
	channels := make([]autoposter.Channel, 0, len(cfg.Channels))

	for i, cc := range cfg.Channels {
		ch, err := autoposter.NewChannel(cc.ChannelID, cc.Message, cc.Interval())
		if err != nil {
			return nil, fmt.Errorf("channels[%d] (%s): %w", i, cc.ChannelID, err)
		}
		channels = append(channels, ch)
	}

	return channels, nil
}

// BuildOptions converts parsed configuration into SDK options, channels
// included. Callers append their own logger and display options.
func BuildOptions(cfg *Config) ([]autoposter.Option, error) {
	channels, err := BuildChannels(cfg)
	if err != nil {
		return nil, err
	}

	opts := []autoposter.Option{
		autoposter.WithToken(cfg.Token),
		autoposter.WithChannels(channels...),
		autoposter.WithAPIBaseURL(cfg.APIBaseURL),
		autoposter.WithRequestTimeout(cfg.RequestTimeout.Duration()),
		autoposter.WithGracePeriod(cfg.GracePeriod.Duration()),
		autoposter.WithHonorRetryAfter(cfg.HonorRetryAfter),
	}

	if cfg.MaxSendsPerSecond > 0 {
		opts = append(opts, autoposter.WithRateLimit(cfg.MaxSendsPerSecond, cfg.Burst))
	}
	if cfg.StatusAddr != "" {
		opts = append(opts, autoposter.WithStatusAddr(cfg.StatusAddr))
	}

	return opts, nil
}
