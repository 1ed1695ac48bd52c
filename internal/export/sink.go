package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

// DefaultBasename is the file name used when none is configured
const DefaultBasename = "slack_dms_export"

// FileSink renders transcripts into <Dir>/<Basename>.<ext>
type FileSink struct {
	Dir      string
	Basename string
	Exporter Exporter
}

// NewFileSink creates a FileSink
func NewFileSink(dir, basename string, exporter Exporter) *FileSink {
	if basename == "" {
		basename = DefaultBasename
	}
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir, Basename: basename, Exporter: exporter}
}

// Path returns the destination file
func (s *FileSink) Path() string {
	return filepath.Join(s.Dir, s.Basename+"."+s.Exporter.Extension())
}

// Deliver implements internal.Sink. A failed export leaves no partial file.
func (s *FileSink) Deliver(ctx context.Context, t *internal.Transcript) (string, error) {
	path := s.Path()
	ext := s.Exporter.Extension()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", &internal.ExportError{Format: ext, Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(s.Dir, "."+s.Basename+"-*."+ext)
	if err != nil {
		return "", &internal.ExportError{Format: ext, Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if err := s.Exporter.Export(t, tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", &internal.ExportError{Format: ext, Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", &internal.ExportError{Format: ext, Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", &internal.ExportError{Format: ext, Path: path, Err: err}
	}

	internal.LogDebug("wrote %d messages to %s", len(t.Messages), path)
	return path, nil
}

// MultiSink delivers to every sink in order. All sinks are attempted; the
// errors are joined.
type MultiSink []internal.Sink

// Deliver implements internal.Sink
func (m MultiSink) Deliver(ctx context.Context, t *internal.Transcript) (string, error) {
	var locations []string
	var errs []error
	for _, s := range m {
		loc, err := s.Deliver(ctx, t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	if len(errs) > 0 {
		return strings.Join(locations, ", "), fmt.Errorf("delivery failed: %w", errors.Join(errs...))
	}
	return strings.Join(locations, ", "), nil
}
