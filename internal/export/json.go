package export

import (
	"encoding/json"
	"io"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// JSONExporter exports the whole transcript as one pretty-printed document
type JSONExporter struct{}

// Export exports a transcript to JSON format
func (e *JSONExporter) Export(t *internal.Transcript, w io.Writer) error {
	if err := checkTranscript(t); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(t)
}

// Extension returns the file extension for this format
func (e *JSONExporter) Extension() string {
	return "json"
}
