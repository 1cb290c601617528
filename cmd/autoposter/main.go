// Package main is the entry point for the autoposter CLI.
//
// Usage:
//
//	autoposter run                    # Post using ./config.json
//	autoposter run -c config.yaml     # Post using another config file
//	autoposter validate -c config.json
//	autoposter version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "autoposter",
	Short: "Post messages to chat channels on a schedule",
	Long: `autoposter repeatedly posts predefined messages to a set of channels,
each on its own interval, using a single account token.

Quick start:
  1. Create a config file (config.json)
  2. Run: autoposter run
  3. Press Ctrl+C to stop

Example config:
  {
    "token": "${DISCORD_TOKEN}",
    "channels": [
      {"channel_id": "1234567890", "message": "hello", "interval_minutes": 30}
    ]
  }`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autoposter %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
