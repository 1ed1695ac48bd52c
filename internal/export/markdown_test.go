package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	tests := []struct {
		name       string
		transcript *internal.Transcript
		want       []string
	}{
		{
			name:       "basic transcript",
			transcript: sampleTranscript(),
			want: []string{
				"# Slack conversation export",
				"**Channel:** D0123456",
				"**Run:** run-1",
				"**Messages:** 2",
				"## 2023-11-14 (Tuesday)",
				"**alice** · 22:13",
				"hi",
				"**bob** · 22:14",
			},
		},
		{
			name: "escapes emphasis",
			transcript: testTranscript(
				internal.CreateTestRecord("1700000000", "alice", "this is **loud**"),
			),
			want: []string{`this is \*\*loud\*\*`},
		},
		{
			name: "keeps code blocks",
			transcript: testTranscript(
				internal.CreateTestRecord("1700000000", "alice", "```\nx := **p\n```"),
			),
			want: []string{"x := **p"},
		},
		{
			name: "one heading per day",
			transcript: testTranscript(
				internal.CreateTestRecord("1700000000", "alice", "a"),
				internal.CreateTestRecord("1700050000", "alice", "b"),
			),
			want: []string{"## 2023-11-14 (Tuesday)", "## 2023-11-15 (Wednesday)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := &MarkdownExporter{Location: time.UTC}
			if err := e.Export(tt.transcript, &buf); err != nil {
				t.Fatalf("Export() error = %v", err)
			}

			output := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(output, want) {
					t.Errorf("Export() output missing %q\n%s", want, output)
				}
			}
		})
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"__init__", `\_\_init\_\_`},
		{"```\n__x__\n```\n__y__", "```\n__x__\n```\n" + `\_\_y\_\_`},
	}

	for _, tt := range tests {
		if got := escapeMarkdown(tt.in); got != tt.want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
