package export

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/whatchicken/slack-dm-scraper/internal"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE runs (
	run_id       TEXT PRIMARY KEY,
	channel      TEXT,
	collected_at TEXT,
	message_count INTEGER NOT NULL
);
CREATE TABLE messages (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL REFERENCES runs(run_id),
	ts        TEXT NOT NULL,
	ts_unix   REAL NOT NULL,
	sender    TEXT NOT NULL,
	text      TEXT NOT NULL,
	UNIQUE (ts, sender, text)
);
CREATE INDEX idx_messages_ts ON messages(ts_unix);
`

// SQLiteExporter writes the transcript as a self-contained SQLite database.
// The database is built in a temporary file and then streamed to w.
type SQLiteExporter struct{}

// Export exports a transcript to a SQLite database image
func (e *SQLiteExporter) Export(t *internal.Transcript, w io.Writer) error {
	if err := checkTranscript(t); err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "slack-dm-export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.db")
	if err := writeSQLite(path, t); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}
	return nil
}

func writeSQLite(path string, t *internal.Transcript) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	collected := ""
	if !t.CollectedAt.IsZero() {
		collected = t.CollectedAt.UTC().Format(time.RFC3339)
	}
	if _, err := tx.Exec(
		"INSERT INTO runs (run_id, channel, collected_at, message_count) VALUES (?, ?, ?, ?)",
		t.RunID, t.Channel, collected, len(t.Messages),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare("INSERT OR IGNORE INTO messages (run_id, ts, ts_unix, sender, text) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range t.Messages {
		secs := float64(msg.Time(time.UTC).UnixMicro()) / 1e6
		if _, err := stmt.Exec(t.RunID, msg.Timestamp, secs, msg.Sender, msg.Text); err != nil {
			return fmt.Errorf("failed to insert message %s: %w", msg.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *SQLiteExporter) Extension() string {
	return "sqlite"
}
