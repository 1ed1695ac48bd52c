package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/internal/export"
	"github.com/whatchicken/slack-dm-scraper/testutil"
)

func writeTestExport(t *testing.T, dir, format, basename string, records ...internal.MessageRecord) string {
	t.Helper()
	exp, err := export.NewExporter(format, export.Options{})
	if err != nil {
		t.Fatalf("NewExporter() error = %v", err)
	}
	tr := &internal.Transcript{
		RunID:       "run-" + basename,
		Channel:     "D0123456",
		CollectedAt: time.Date(2023, time.November, 16, 9, 0, 0, 0, time.UTC),
		Messages:    records,
	}
	path, err := export.NewFileSink(dir, basename, exp).Deliver(context.Background(), tr)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	return path
}

func TestExportCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "export without input",
			args:    []string{"export"},
			wantErr: true,
		},
		{
			name:    "export unreadable input",
			args:    []string{"export", "transcript.txt"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeRoot(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("exportCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExportCommand_InvalidFormat(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	in := writeTestExport(t, dir, "json", "in", internal.CreateTestRecord("1700000000.000100", "alice", "hi"))

	if _, err := executeRoot(t, "export", in, "--format", "invalid", "--out", dir); err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("Execute() error = %v, want unsupported format", err)
	}
}

func TestExportCommand_Merge(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	first := writeTestExport(t, dir, "jsonl", "first",
		internal.CreateTestRecord("1700000000.000100", "alice", "hi"),
		internal.CreateTestRecord("1700000060.000200", "bob", "yo"),
	)
	second := writeTestExport(t, dir, "sqlite", "second",
		internal.CreateTestRecord("1700000060.000200", "bob", "yo"),
		internal.CreateTestRecord("1700000120.000300", "alice", "bye"),
	)

	if _, err := executeRoot(t, "export", first, second, "--format", "txt", "--out", dir, "--basename", "merged", "--timezone", "UTC"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "merged.txt"))
	if err != nil {
		t.Fatalf("merged export not written: %v", err)
	}
	got := string(data)
	for _, want := range []string{"2023년 11월 14일 화요일", "alice : hi", "bob : yo", "alice : bye"} {
		if !strings.Contains(got, want) {
			t.Errorf("merged transcript missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "bob : yo") != 1 {
		t.Errorf("duplicate message written more than once:\n%s", got)
	}
}
