package export

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
	"gopkg.in/yaml.v3"
)

// ReadableFormats lists the formats ReadTranscript understands
var ReadableFormats = []string{"json", "jsonl", "yaml", "sqlite"}

// ReadTranscript loads a transcript written by the json, jsonl, yaml or
// sqlite exporter. The format is taken from the file extension.
func ReadTranscript(path string) (*internal.Transcript, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "json":
		return readJSON(path)
	case "jsonl":
		return readJSONL(path)
	case "yaml", "yml":
		return readYAML(path)
	case "sqlite", "db":
		return readSQLite(path)
	default:
		return nil, fmt.Errorf("cannot read %s: unsupported format %q (supported: %s)", path, ext, strings.Join(ReadableFormats, ", "))
	}
}

// MergeTranscripts combines transcripts into one, dropping duplicate
// messages and sorting by timestamp
func MergeTranscripts(runID string, transcripts ...*internal.Transcript) (*internal.Transcript, error) {
	store := internal.NewMessageStore()
	channel := ""
	var collected time.Time
	for _, t := range transcripts {
		if t == nil {
			continue
		}
		store.Merge(t.Messages)
		if channel == "" {
			channel = t.Channel
		}
		if t.CollectedAt.After(collected) {
			collected = t.CollectedAt
		}
	}
	return internal.BuildTranscript(store, runID, channel, collected)
}

func readJSON(path string) (*internal.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t internal.Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &t, nil
}

func readYAML(path string) (*internal.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t internal.Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &t, nil
}

func readJSONL(path string) (*internal.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t := &internal.Transcript{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var rec internal.MessageRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse %s line %d: %w", path, line, err)
		}
		t.Messages = append(t.Messages, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

func readSQLite(path string) (*internal.Transcript, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	t := &internal.Transcript{}
	var channel, collected sql.NullString
	err = db.QueryRow("SELECT run_id, channel, collected_at FROM runs LIMIT 1").Scan(&t.RunID, &channel, &collected)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	t.Channel = channel.String
	if collected.String != "" {
		if ts, err := time.Parse(time.RFC3339, collected.String); err == nil {
			t.CollectedAt = ts
		}
	}

	rows, err := db.Query("SELECT ts, sender, text FROM messages ORDER BY ts_unix, id")
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec internal.MessageRecord
		if err := rows.Scan(&rec.Timestamp, &rec.Sender, &rec.Text); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		t.Messages = append(t.Messages, rec)
	}
	return t, rows.Err()
}
