package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// MarkdownExporter exports transcripts in Markdown format, one section per day
type MarkdownExporter struct {
	Location *time.Location
}

// Export exports a transcript to Markdown format
func (e *MarkdownExporter) Export(t *internal.Transcript, w io.Writer) error {
	if err := checkTranscript(t); err != nil {
		return err
	}
	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	// Header
	_, _ = fmt.Fprintf(w, "# Slack conversation export\n\n")
	if t.Channel != "" {
		_, _ = fmt.Fprintf(w, "**Channel:** %s  \n", t.Channel)
	}
	if t.RunID != "" {
		_, _ = fmt.Fprintf(w, "**Run:** %s  \n", t.RunID)
	}
	if !t.CollectedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Collected:** %s  \n", t.CollectedAt.In(loc).Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(t.Messages))

	lastDay := ""
	for _, msg := range t.Messages {
		ts := msg.Time(loc)
		if day := ts.Format("2006-01-02 (Monday)"); day != lastDay {
			_, _ = fmt.Fprintf(w, "## %s\n\n", day)
			lastDay = day
		}
		_, _ = fmt.Fprintf(w, "**%s** · %s\n\n%s\n\n", escapeMarkdown(msg.Sender), ts.Format("15:04"), escapeMarkdown(msg.Text))
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
