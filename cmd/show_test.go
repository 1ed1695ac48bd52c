package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
	"github.com/whatchicken/slack-dm-scraper/testutil"
)

func TestShowCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "show without file",
			args:    []string{"show"},
			wantErr: true,
		},
		{
			name:    "show missing file",
			args:    []string{"show", "does-not-exist.json"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := executeRoot(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("showCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShowCommand_File(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	path := writeTestExport(t, dir, "yaml", "show",
		internal.CreateTestRecord("1700000000.000100", "alice", "hi"),
		internal.CreateTestRecord("1700000060.000200", "bob", "yo"),
	)

	got, err := executeRoot(t, "show", path, "--limit", "1")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"D0123456", "2 messages", "alice", "hi", "(1 more message(s))"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "yo") {
		t.Errorf("limit not applied:\n%s", got)
	}
}

func TestDisplayTranscript(t *testing.T) {
	tr := &internal.Transcript{
		RunID: "run-1",
		Messages: []internal.MessageRecord{
			internal.CreateTestRecord("1700000000.000100", "alice", "first day"),
			internal.CreateTestRecord("1700100000.000100", "bob", "second day"),
			internal.CreateTestRecord("1700100060.000100", "bob", ""),
		},
	}

	tests := []struct {
		name    string
		since   time.Time
		want    []string
		notWant []string
	}{
		{
			name: "all messages",
			want: []string{"2023-11-14 (Tuesday)", "2023-11-16 (Thursday)", "first day", "second day", "(empty message)", "(none)"},
		},
		{
			name:    "since filter",
			since:   time.Date(2023, time.November, 15, 0, 0, 0, 0, time.UTC),
			want:    []string{"second day"},
			notWant: []string{"first day", "2023-11-14"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			displayTranscript(&buf, tr, tt.since, 0, time.UTC)
			got := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q:\n%s", w, got)
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(got, w) {
					t.Errorf("output should not contain %q:\n%s", w, got)
				}
			}
		})
	}

	t.Run("nil transcript", func(t *testing.T) {
		var buf bytes.Buffer
		displayTranscript(&buf, nil, time.Time{}, 0, time.UTC)
		if buf.Len() != 0 {
			t.Errorf("nil transcript should print nothing, got %q", buf.String())
		}
	})
}
