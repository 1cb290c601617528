package main

import (
	"fmt"

	"github.com/jpalmerr/autoposter/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without posting anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate an autoposter configuration file without contacting the API.

This command parses the file, expands environment variables, and validates
all fields. The token itself is not checked.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  autoposter validate
  autoposter validate -c /etc/autoposter/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", config.DefaultPath, "path to config file")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if _, err := config.BuildChannels(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  API:      %s\n", cfg.APIBaseURL)
	fmt.Fprintf(out, "  Timeout:  %s\n", cfg.RequestTimeout.Duration())
	if cfg.StatusAddr != "" {
		fmt.Fprintf(out, "  Status:   http://%s/api/stats\n", cfg.StatusAddr)
	}
	fmt.Fprintf(out, "  Channels: %d\n", len(cfg.Channels))
	for _, ch := range cfg.Channels {
		fmt.Fprintf(out, "    - %s every %d min\n", ch.ChannelID, ch.IntervalMinutes)
	}

	return nil
}
