package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/browser"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the Slack tab and history API are reachable",
	Long: `Check the health of slack-dm-scraper by verifying:
  • Configuration loading
  • Chrome DevTools connection and the Slack tab
  • The message pane of the open conversation
  • Token and channel discovery
  • conversations.history access

This command is useful before a long collection run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 Slack DM Scraper Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		cfg, err := internal.LoadConfig(configPath)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to load configuration:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Configuration loaded"))
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Debugger URL: %s\n", orNone(cfg.Browser.DebuggerURL))
			fmt.Fprintf(out, "   Export: %s → %s\n", cfg.Export.Format, cfg.Export.Dir)
		}
		fmt.Fprintln(out)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		// Step 2: Browser
		fmt.Fprintln(out, infoStyle.Render("Step 2: Connecting to Chrome..."))
		session, err := browser.Open(ctx, browser.OptionsFromConfig(cfg.Browser))
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to reach the Slack tab:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer session.Close()
		fmt.Fprintln(out, successStyle.Render("✅ Slack tab found"))
		fmt.Fprintln(out)

		// Step 3: Message pane
		fmt.Fprintln(out, infoStyle.Render("Step 3: Reading the message pane..."))
		paneOK := checkPane(ctx, out, session.Driver())
		fmt.Fprintln(out)

		// Step 4: Credentials
		fmt.Fprintln(out, infoStyle.Render("Step 4: Discovering token and channel..."))
		creds, err := session.Credentials(ctx)
		if err != nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Could not read credentials:"), err)
		}
		if cfg.API.Token != "" || creds.Token != "" {
			fmt.Fprintln(out, successStyle.Render("✅ API token available"))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No API token; set SLACK_TOKEN to enable the history fallback"))
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Channel: %s\n", orNone(firstNonEmpty(cfg.API.Channel, creds.Channel)))
			fmt.Fprintf(out, "   Page: %s\n", orNone(creds.URL))
			fmt.Fprintf(out, "   Cookies: %d\n", len(creds.Cookies))
		}
		fmt.Fprintln(out)

		// Step 5: History API
		fmt.Fprintln(out, infoStyle.Render("Step 5: Querying conversations.history..."))
		apiOK := false
		if history := historyAPI(cfg, creds); history == nil {
			fmt.Fprintln(out, warningStyle.Render("⚠️  History API not configured"))
		} else if page, err := history.FetchPage(ctx, "", ""); err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ History request failed:"), err)
		} else {
			apiOK = true
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ History API reachable (%d messages on the first page)", len(page.Messages))))
		}
		fmt.Fprintln(out)

		if cfg.TelegramEnabled() {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Telegram delivery to chat %d enabled", cfg.Telegram.ChatID)))
			fmt.Fprintln(out)
		}

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)

		switch {
		case paneOK && apiOK:
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			return nil
		case paneOK:
			fmt.Fprintln(out, warningStyle.Render("⚠️  The view can be collected but the history fallback is unavailable"))
			fmt.Fprintln(out, "   • Older messages may be missing when the view stops loading")
			return nil
		default:
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(out, "   • Open a direct message conversation in the Slack tab")
			return errors.New("health check failed: message pane not found")
		}
	},
}

func checkPane(ctx context.Context, out io.Writer, driver internal.ViewDriver) bool {
	fragments, err := driver.ReadVisible(ctx)
	switch {
	case errors.Is(err, internal.ErrViewNotFound):
		fmt.Fprintln(out, errorStyle.Render("❌ No conversation is open"))
		return false
	case err != nil:
		fmt.Fprintln(out, errorStyle.Render("❌ Failed to read the view:"), err)
		return false
	}

	visible := internal.NewExtractor(internal.NewMessageStore()).Extract(fragments)
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %d messages visible", visible)))
	if healthcheckVerbose && len(fragments) > visible {
		fmt.Fprintf(out, "   %d incomplete or repeated blocks skipped (check the selectors)\n", len(fragments)-visible)
	}
	return true
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "verbose", "v", false, "Show detailed diagnostic information")
}
