// # internal/data/store/libraries.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domainerrors "nekoscript/internal/core/errors"
)

// Library is an importable nekoScript source file.
type Library struct {
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
	Builtin   bool   `json:"builtin"`
	UpdatedAt string `json:"updated_at"`
}

// LookupLibrary resolves an imported name. Lookups are exact.
func (s *Store) LookupLibrary(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.withRetry("lookup library", func() error {
		return s.db.QueryRowContext(ctx, `SELECT content FROM libraries WHERE name = ?`, strings.TrimSpace(name)).Scan(&content)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return content, true, nil
}

// PutLibrary inserts or replaces a library.
func (s *Store) PutLibrary(ctx context.Context, lib Library) error {
	name := strings.TrimSpace(lib.Name)
	if name == "" {
		return domainerrors.New(domainerrors.CodeValidationError, "library name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("put library", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO libraries (name, content, builtin, updated_at_utc) VALUES (?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET content=excluded.content, builtin=excluded.builtin, updated_at_utc=excluded.updated_at_utc`,
			name, lib.Content, boolInt(lib.Builtin), now())
		return err
	})
}

// ListLibraries returns every library without its content, sorted by name.
func (s *Store) ListLibraries(ctx context.Context) ([]Library, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list libraries", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT name, builtin, updated_at_utc FROM libraries ORDER BY name`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	libs := make([]Library, 0)
	for rows.Next() {
		var (
			lib     Library
			builtin int
		)
		if err := rows.Scan(&lib.Name, &builtin, &lib.UpdatedAt); err != nil {
			return nil, err
		}
		lib.Builtin = builtin != 0
		libs = append(libs, lib)
	}
	return libs, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
