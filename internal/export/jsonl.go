package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a transcript to JSONL format
func (e *JSONLExporter) Export(t *internal.Transcript, w io.Writer) error {
	if err := checkTranscript(t); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, msg := range t.Messages {
		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("failed to encode message %s: %w", msg.Timestamp, err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
