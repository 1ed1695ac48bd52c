package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/tui"
)

var (
	format      string
	outputDir   string
	basename    string
	locale      string
	timezone    string
	channel     string
	token       string
	debuggerURL string
	launch      bool
	headless    bool
	useTUI      bool
	noAPI       bool
	settleDelay time.Duration
	stallLimit  int
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect the open conversation and export it",
	Long: `Collect every message of the conversation open in the Slack tab.

The message list is scrolled until it stops loading older messages for
several consecutive attempts. The rest of the history is then fetched from
the conversations.history API, using the token and channel of the page
unless --token and --channel are given.

Press Ctrl+C to stop early; whatever was collected is still exported.

Supported formats: txt (default, Korean date headers), md, json, jsonl, yaml, sqlite.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := internal.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := applyCollectFlags(cmd, cfg); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, cfg, !noAPI)
		if err != nil {
			return err
		}
		defer a.Close()

		var result internal.Result
		if useTUI {
			res, err := tui.Run(ctx, a.controller, tui.Options{AutoStart: true, ExitOnOutcome: true})
			if err != nil {
				// the program is gone but the run may still be exporting
				a.controller.Stop()
				result = a.controller.Wait()
			} else if res != nil {
				result = *res
			} else {
				result = a.controller.Wait()
			}
		} else {
			printer := internal.NewEventPrinter(os.Stderr)
			a.controller.Subscribe(printer.Print)
			a.controller.Start(ctx)
			result = a.controller.Wait()
		}

		return reportResult(result)
	},
}

// applyCollectFlags overlays explicitly set flags onto cfg
func applyCollectFlags(cmd *cobra.Command, cfg *internal.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Export.Format = format
	}
	if flags.Changed("output") {
		cfg.Export.Dir = outputDir
	}
	if flags.Changed("basename") {
		cfg.Export.Basename = basename
	}
	if flags.Changed("locale") {
		cfg.Export.Locale = locale
	}
	if flags.Changed("timezone") {
		cfg.Export.Timezone = timezone
	}
	if flags.Changed("channel") {
		cfg.API.Channel = channel
	}
	if flags.Changed("token") {
		cfg.API.Token = token
	}
	if flags.Changed("debugger-url") {
		cfg.Browser.DebuggerURL = debuggerURL
	}
	if flags.Changed("launch") {
		cfg.Browser.Launch = launch
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("settle-delay") {
		cfg.Acquisition.SettleDelay = settleDelay
	}
	if flags.Changed("stall-limit") {
		cfg.Acquisition.StallLimit = stallLimit
	}
	return cfg.Validate()
}

func reportResult(r internal.Result) error {
	switch r.Outcome {
	case internal.OutcomeExported:
		internal.PrintSuccess(fmt.Sprintf("Exported %d messages to %s", r.Messages, r.Location))
		return nil
	case internal.OutcomeEmpty:
		internal.PrintWarning("No messages were collected; nothing was exported")
		return nil
	default:
		return fmt.Errorf("export failed after collecting %d messages: %w", r.Messages, r.Err)
	}
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVarP(&format, "format", "f", "txt", "Export format: txt, md, json, jsonl, yaml, sqlite")
	collectCmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	collectCmd.Flags().StringVar(&basename, "basename", "slack_dms_export", "Output file name without extension")
	collectCmd.Flags().StringVar(&locale, "locale", "ko", "Transcript locale for the txt format: ko, en")
	collectCmd.Flags().StringVar(&timezone, "timezone", "", "IANA time zone for dates (default: local)")
	collectCmd.Flags().StringVar(&channel, "channel", "", "Conversation ID for the history API (default: read from the page)")
	collectCmd.Flags().StringVar(&token, "token", "", "Slack token for the history API (default: read from the page)")
	collectCmd.Flags().StringVar(&debuggerURL, "debugger-url", "", "Chrome DevTools URL or host:port")
	collectCmd.Flags().BoolVar(&launch, "launch", false, "Launch a dedicated Chrome instead of attaching")
	collectCmd.Flags().BoolVar(&headless, "headless", false, "Run the launched Chrome headless")
	collectCmd.Flags().BoolVar(&useTUI, "tui", false, "Show an interactive progress view")
	collectCmd.Flags().BoolVar(&noAPI, "no-api", false, "Skip the history API fallback")
	collectCmd.Flags().DurationVar(&settleDelay, "settle-delay", 4*time.Second, "Wait after each scroll before reading the view")
	collectCmd.Flags().IntVar(&stallLimit, "stall-limit", 5, "Consecutive attempts without new messages before falling back")
}
