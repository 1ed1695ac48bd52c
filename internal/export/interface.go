package export

import (
	"fmt"
	"io"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(t *internal.Transcript, w io.Writer) error
	Extension() string
}

// Options tune the formats that render wall-clock times
type Options struct {
	// Locale selects date and clock wording for the text format ("ko", "en")
	Locale string
	// Location is the zone messages are grouped and printed in; nil means local
	Location *time.Location
}

// NewExporter creates a new exporter based on format
func NewExporter(format string, opts Options) (Exporter, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	switch format {
	case "txt", "text":
		locale := opts.Locale
		if locale == "" {
			locale = "ko"
		}
		if _, ok := textLocales[locale]; !ok {
			return nil, fmt.Errorf("unsupported locale: %s (supported: ko, en)", locale)
		}
		return &TextExporter{Locale: locale, Location: loc}, nil
	case "md", "markdown":
		return &MarkdownExporter{Location: loc}, nil
	case "json":
		return &JSONExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml":
		return &YAMLExporter{}, nil
	case "sqlite", "db":
		return &SQLiteExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: txt, md, json, jsonl, yaml, sqlite)", format)
	}
}

// checkTranscript rejects transcripts that would render an empty artifact
func checkTranscript(t *internal.Transcript) error {
	if t == nil || len(t.Messages) == 0 {
		return internal.ErrEmptyResult
	}
	return nil
}
