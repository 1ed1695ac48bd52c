package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// MessageRow is one row of an exported messages table
type MessageRow struct {
	TS     string
	Sender string
	Text   string
}

// OpenSQLiteImage writes a database image to a temp file and opens it
// read-only. The database is closed at the end of the test.
func OpenSQLiteImage(t *testing.T, image []byte) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.db")
	if err := os.WriteFile(path, image, 0o644); err != nil {
		t.Fatalf("Failed to write database image: %v", err)
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Fatalf("Database ping failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// QueryMessages returns the messages table ordered by timestamp
func QueryMessages(t *testing.T, db *sql.DB) []MessageRow {
	t.Helper()
	rows, err := db.Query("SELECT ts, sender, text FROM messages ORDER BY ts_unix, id")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	var out []MessageRow
	for rows.Next() {
		var r MessageRow
		if err := rows.Scan(&r.TS, &r.Sender, &r.Text); err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Rows iteration error: %v", err)
	}
	return out
}

// CountRows returns the number of rows in table
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Count %s failed: %v", table, err)
	}
	return n
}
