// # internal/data/store/runs.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	domainerrors "nekoscript/internal/core/errors"
)

// RunRecord summarizes one interpret or transpile run.
type RunRecord struct {
	ID         string          `json:"id"`
	Mode       string          `json:"mode"`
	SourceName string          `json:"source_name,omitempty"`
	LineCount  int             `json:"line_count"`
	EventCount int             `json:"event_count"`
	ErrorCount int             `json:"error_count"`
	DurationMS float64         `json:"duration_ms"`
	StartedAt  time.Time       `json:"started_at"`
	Events     json.RawMessage `json:"events,omitempty"`
}

// SaveRuns writes a batch of records in one transaction. Existing ids are
// replaced.
func (s *Store) SaveRuns(ctx context.Context, records []RunRecord) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, "save runs", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO runs (
  id, mode, source_name, line_count, event_count, error_count, duration_ms, started_at_utc, events_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if r.ID == "" {
				return domainerrors.New(domainerrors.CodeValidationError, "run id is required")
			}
			started := r.StartedAt
			if started.IsZero() {
				started = time.Now()
			}
			events := string(r.Events)
			if events == "" {
				events = "[]"
			}
			if _, err := stmt.ExecContext(ctx, r.ID, r.Mode, r.SourceName, r.LineCount, r.EventCount,
				r.ErrorCount, r.DurationMS, started.UTC().Format(timeLayout), events); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListRuns returns the newest records first, without their events.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list runs", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, mode, source_name, line_count, event_count, error_count, duration_ms, started_at_utc
FROM runs ORDER BY started_at_utc DESC, id LIMIT ?`, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]RunRecord, 0)
	for rows.Next() {
		var (
			r       RunRecord
			started string
		)
		if err := rows.Scan(&r.ID, &r.Mode, &r.SourceName, &r.LineCount, &r.EventCount, &r.ErrorCount, &r.DurationMS, &started); err != nil {
			return nil, err
		}
		r.StartedAt = parseTime(started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one record including its events.
func (s *Store) GetRun(ctx context.Context, id string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		r       RunRecord
		started string
		events  string
	)
	err := s.withRetry("get run", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT id, mode, source_name, line_count, event_count, error_count, duration_ms, started_at_utc, events_json
FROM runs WHERE id = ?`, id).Scan(&r.ID, &r.Mode, &r.SourceName, &r.LineCount, &r.EventCount, &r.ErrorCount, &r.DurationMS, &started, &events)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "run not found"), domainerrors.CtxRunID, id)
	}
	if err != nil {
		return RunRecord{}, err
	}
	r.StartedAt = parseTime(started)
	r.Events = json.RawMessage(events)
	return r, nil
}
