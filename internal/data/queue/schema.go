// # internal/data/queue/schema.go
package queue

import (
	"database/sql"
	"fmt"
)

func migrateSpoolSchema(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("spool db is nil")
	}
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS run_spool (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  attempts INTEGER NOT NULL DEFAULT 0,
  next_attempt_at INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  last_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_run_spool_next ON run_spool(next_attempt_at, id);
`)
	if err != nil {
		return fmt.Errorf("migrate spool schema: %w", err)
	}
	return nil
}
