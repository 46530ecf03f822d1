// # internal/data/queue/sqlite_spool.go
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nekoscript/internal/core/ports"
	"nekoscript/internal/data/store"
)

const sqliteDriverName = "sqlite"

var _ ports.WriteSpoolPort = (*SQLiteSpool)(nil)

// SQLiteSpool persists run records the memory queue dropped so the write
// worker can retry them later.
type SQLiteSpool struct {
	db *sql.DB
}

type spoolPayload struct {
	Version int             `json:"version"`
	Record  store.RunRecord `json:"record"`
}

func OpenSQLiteSpool(path string) (*SQLiteSpool, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("spool path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("spool path %q is a directory", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create spool directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open spool sqlite %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping spool sqlite %q: %w", cleanPath, err)
	}
	if err := migrateSpoolSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteSpool{db: db}, nil
}

func (s *SQLiteSpool) Enqueue(rec store.RunRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("spool not initialized")
	}
	now := time.Now().UTC().UnixMilli()
	raw, err := json.Marshal(spoolPayload{Version: 1, Record: rec})
	if err != nil {
		return fmt.Errorf("marshal spool payload: %w", err)
	}
	_, err = s.db.Exec(`
INSERT INTO run_spool (run_id, payload, attempts, next_attempt_at, created_at, last_error)
VALUES (?, ?, 0, ?, ?, '')`, rec.ID, raw, now, now)
	if err != nil {
		return fmt.Errorf("enqueue spool record: %w", err)
	}
	return nil
}

// DequeueBatch returns rows whose retry time has passed, oldest first. Rows
// stay in the spool until acknowledged.
func (s *SQLiteSpool) DequeueBatch(ctx context.Context, maxItems int) ([]ports.SpoolRow, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("spool not initialized")
	}
	if maxItems <= 0 {
		maxItems = 1
	}
	now := time.Now().UTC().UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
SELECT id, payload, attempts FROM run_spool
WHERE next_attempt_at <= ?
ORDER BY id ASC
LIMIT ?`, now, maxItems)
	if err != nil {
		return nil, fmt.Errorf("dequeue spool batch: %w", err)
	}
	defer rows.Close()

	out := make([]ports.SpoolRow, 0, maxItems)
	for rows.Next() {
		var (
			id       int64
			raw      []byte
			attempts int
		)
		if err := rows.Scan(&id, &raw, &attempts); err != nil {
			return nil, fmt.Errorf("scan spool row: %w", err)
		}
		var payload spoolPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode spool payload id=%d: %w", id, err)
		}
		out = append(out, ports.SpoolRow{ID: id, Record: payload.Record, Attempts: attempts})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spool rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteSpool) Ack(ids []int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("spool not initialized")
	}
	if len(ids) == 0 {
		return nil
	}
	return s.inTx(`DELETE FROM run_spool WHERE id = ?`, "ack", len(ids), func(stmt *sql.Stmt, i int) error {
		_, err := stmt.Exec(ids[i])
		return err
	})
}

// Nack bumps the attempt count and defers the rows until nextAttemptAt.
func (s *SQLiteSpool) Nack(rows []ports.SpoolRow, nextAttemptAt time.Time, lastErr string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("spool not initialized")
	}
	if len(rows) == 0 {
		return nil
	}
	nextMS := nextAttemptAt.UTC().UnixMilli()
	return s.inTx(`UPDATE run_spool SET attempts = ?, next_attempt_at = ?, last_error = ? WHERE id = ?`, "nack", len(rows),
		func(stmt *sql.Stmt, i int) error {
			_, err := stmt.Exec(rows[i].Attempts+1, nextMS, lastErr, rows[i].ID)
			return err
		})
}

func (s *SQLiteSpool) inTx(query, op string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin spool %s tx: %w", op, err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare spool %s: %w", op, err)
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("spool %s row %d: %w", op, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spool %s tx: %w", op, err)
	}
	return nil
}

func (s *SQLiteSpool) PendingCount(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("spool not initialized")
	}
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM run_spool`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count spool rows: %w", err)
	}
	return count, nil
}

func (s *SQLiteSpool) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
