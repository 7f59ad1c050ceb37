// Package history persists a record of each finished batch: the final
// BatchSummary plus a per-task breakdown, so a caller can answer "what did
// batch X do" after the orchestrator that ran it is gone. It does not
// persist live queue state; a batch only appears here once it reaches a
// terminal status (Completed or Cancelled).
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"ytbatch/internal/constants"
)

// DB wraps the SQLite connection backing the history store.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (creating if necessary) the history database under dataDir and
// runs migrations.
func New(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("history: create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, constants.DBFile)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000", // 64MB cache
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("history: set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, path: dbPath}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: migration failed: %w", err)
	}

	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection for advanced queries.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) migrate() error {
	schema := `
	-- One row per finished batch.
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		total INTEGER DEFAULT 0,
		completed INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		success_rate REAL DEFAULT 0,
		elapsed_seconds REAL DEFAULT 0,
		avg_task_seconds REAL DEFAULT 0,
		config TEXT,
		started_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_batches_completed_at ON batches(completed_at DESC);

	-- One row per task belonging to a batch, for Repository.Get's detail view.
	CREATE TABLE IF NOT EXISTS batch_tasks (
		batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
		task_id TEXT NOT NULL,
		video_id TEXT NOT NULL,
		title TEXT,
		state TEXT NOT NULL,
		retry_count INTEGER DEFAULT 0,
		bytes_written INTEGER DEFAULT 0,
		output_path TEXT,
		error_kind TEXT,
		error_message TEXT,
		PRIMARY KEY (batch_id, task_id)
	);

	CREATE INDEX IF NOT EXISTS idx_batch_tasks_batch_id ON batch_tasks(batch_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}
