package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

func TestFileSink_Deliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := NewFileSink(dir, "", &TextExporter{Locale: "ko", Location: time.UTC})

	path, err := sink.Deliver(context.Background(), sampleTranscript())
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if want := filepath.Join(dir, "slack_dms_export.txt"); path != want {
		t.Errorf("Deliver() path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "alice : hi") {
		t.Errorf("export content = %q", data)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("export dir has %d entries, want only the export", len(entries))
	}
}

func TestFileSink_FailedExportLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, "out", &TextExporter{Locale: "ko", Location: time.UTC})

	_, err := sink.Deliver(context.Background(), testTranscript())
	var exportErr *internal.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("Deliver() error = %v, want *ExportError", err)
	}
	if !errors.Is(err, internal.ErrEmptyResult) {
		t.Errorf("Deliver() error = %v, want wrapped ErrEmptyResult", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed export left %d files behind", len(entries))
	}
}

type recordingSink struct {
	loc string
	err error
	n   int
}

func (s *recordingSink) Deliver(ctx context.Context, t *internal.Transcript) (string, error) {
	s.n++
	return s.loc, s.err
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{loc: "a.txt"}
	b := &recordingSink{err: errors.New("telegram down")}
	c := &recordingSink{loc: "telegram:1"}

	loc, err := MultiSink{a, b, c}.Deliver(context.Background(), sampleTranscript())
	if err == nil || !strings.Contains(err.Error(), "telegram down") {
		t.Errorf("Deliver() error = %v", err)
	}
	if loc != "a.txt, telegram:1" {
		t.Errorf("Deliver() location = %q", loc)
	}
	if a.n != 1 || b.n != 1 || c.n != 1 {
		t.Error("not every sink was attempted")
	}
}
