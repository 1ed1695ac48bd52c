package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/export"
)

var (
	limit int
	since string
)

var (
	// Styles for show command
	transcriptHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	transcriptMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	senderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true).
			Padding(0, 1)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Show the messages of an exported transcript",
	Long:  `Display the messages of a json, jsonl, yaml or sqlite export in the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := export.ReadTranscript(args[0])
		if err != nil {
			return err
		}

		var sinceTime time.Time
		if since != "" {
			sinceTime, err = time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
		}

		displayTranscript(cmd.OutOrStdout(), t, sinceTime, limit, time.Local)
		return nil
	},
}

// displayTranscript prints the messages at or after since, at most limit of
// them when limit is positive
func displayTranscript(w io.Writer, t *internal.Transcript, since time.Time, limit int, loc *time.Location) {
	if t == nil {
		return
	}

	fmt.Fprintln(w, transcriptHeaderStyle.Render(fmt.Sprintf("💬 %s", orNone(t.Channel))))
	meta := fmt.Sprintf("%d messages", len(t.Messages))
	if !t.CollectedAt.IsZero() {
		meta += " • collected " + t.CollectedAt.In(loc).Format("2006-01-02 15:04")
	}
	if t.RunID != "" {
		meta += " • run " + t.RunID
	}
	fmt.Fprintln(w, transcriptMetaStyle.Render(meta))

	var shown []internal.MessageRecord
	for _, m := range t.Messages {
		if !since.IsZero() && m.Time(loc).Before(since) {
			continue
		}
		shown = append(shown, m)
	}
	total := len(shown)
	if limit > 0 && limit < total {
		shown = shown[:limit]
	}

	day := ""
	for _, m := range shown {
		ts := m.Time(loc)
		if d := ts.Format("2006-01-02 (Monday)"); d != day {
			day = d
			fmt.Fprintln(w, dayStyle.Render(d))
		}
		fmt.Fprintln(w, senderStyle.Render(m.Sender)+" "+timestampStyle.Render(ts.Format("15:04")))
		if m.Text != "" {
			fmt.Fprintln(w, messageContentStyle.Render(m.Text))
		} else {
			fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
		}
	}

	if limit > 0 && limit < total {
		fmt.Fprintln(w, timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
