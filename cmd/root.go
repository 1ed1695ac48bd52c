package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
)

var (
	verbose    bool
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "slack-dm-scraper",
	Short: "Collect a Slack direct message conversation into a transcript",
	Long: `Collect the full history of a Slack direct message conversation from a
signed-in Slack web client.

The scraper drives the open conversation in Chrome, scrolling the message list
until it stops loading older messages, then completes the history through the
conversations.history API and writes a date-grouped transcript.

Chrome must run with remote debugging enabled, for example:
  google-chrome --remote-debugging-port=9222

Quick Start:
  slack-dm-scraper collect --debugger-url localhost:9222
  slack-dm-scraper collect --tui --format md -o ./exports
  slack-dm-scraper serve                    # control runs over a websocket
  slack-dm-scraper healthcheck              # verify browser and API access

Configuration is read from ~/.config/slack-dm-scraper/config.yaml or --config.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/slack-dm-scraper/config.yaml)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
