// # internal/data/store/packages.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	domainerrors "nekoscript/internal/core/errors"
)

const defaultAuthor = "Anonymous"

// Package is a published, shareable library.
type Package struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Content     string `json:"content,omitempty"`
	Downloads   int    `json:"downloads"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// PackageUpdate carries the mutable fields; nil fields are left unchanged.
type PackageUpdate struct {
	Description *string `json:"description"`
	Version     *string `json:"version"`
	Content     *string `json:"content"`
}

func validatePackage(p Package) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return domainerrors.New(domainerrors.CodeValidationError, "package name is required")
	case strings.TrimSpace(p.Version) == "":
		return domainerrors.New(domainerrors.CodeValidationError, "package version is required")
	case strings.TrimSpace(p.Content) == "":
		return domainerrors.New(domainerrors.CodeValidationError, "package content is required")
	}
	return nil
}

// CreatePackage inserts a new package. An existing name is a conflict.
func (s *Store) CreatePackage(ctx context.Context, p Package) (Package, error) {
	if err := validatePackage(p); err != nil {
		return Package{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Author) == "" {
		p.Author = defaultAuthor
	}

	s.mu.Lock()
	ts := now()
	err := s.withRetry("create package", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO packages (name, description, version, author, content, downloads, created_at_utc, updated_at_utc)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)`, p.Name, p.Description, p.Version, p.Author, p.Content, ts, ts)
		return err
	})
	s.mu.Unlock()
	if isUniqueViolation(err) {
		return Package{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeConflict, "package already exists"), domainerrors.CtxPackage, p.Name)
	}
	if err != nil {
		return Package{}, err
	}
	return s.GetPackage(ctx, p.Name)
}

// PublishPackage creates the package or replaces its version, content,
// description and author, keeping the download counter.
func (s *Store) PublishPackage(ctx context.Context, p Package) (Package, error) {
	if err := validatePackage(p); err != nil {
		return Package{}, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.Author) == "" {
		p.Author = defaultAuthor
	}

	s.mu.Lock()
	ts := now()
	err := s.withRetry("publish package", func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO packages (name, description, version, author, content, downloads, created_at_utc, updated_at_utc)
VALUES (?, ?, ?, ?, ?, 0, ?, ?)
ON CONFLICT(name) DO UPDATE SET
  description=excluded.description,
  version=excluded.version,
  author=excluded.author,
  content=excluded.content,
  updated_at_utc=excluded.updated_at_utc`, p.Name, p.Description, p.Version, p.Author, p.Content, ts, ts)
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return Package{}, err
	}
	return s.GetPackage(ctx, p.Name)
}

// UpdatePackage changes the given fields of an existing package.
func (s *Store) UpdatePackage(ctx context.Context, name string, upd PackageUpdate) (Package, error) {
	current, err := s.GetPackage(ctx, name)
	if err != nil {
		return Package{}, err
	}
	if upd.Description != nil {
		current.Description = *upd.Description
	}
	if upd.Version != nil {
		current.Version = *upd.Version
	}
	if upd.Content != nil {
		current.Content = *upd.Content
	}
	if err := validatePackage(current); err != nil {
		return Package{}, err
	}

	s.mu.Lock()
	err = s.withRetry("update package", func() error {
		_, err := s.db.ExecContext(ctx, `
UPDATE packages SET description = ?, version = ?, content = ?, updated_at_utc = ? WHERE name = ?`,
			current.Description, current.Version, current.Content, now(), current.Name)
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return Package{}, err
	}
	return s.GetPackage(ctx, name)
}

// GetPackage returns a package with its content.
func (s *Store) GetPackage(ctx context.Context, name string) (Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Package
	err := s.withRetry("get package", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT name, description, version, author, content, downloads, created_at_utc, updated_at_utc
FROM packages WHERE name = ?`, strings.TrimSpace(name)).Scan(
			&p.Name, &p.Description, &p.Version, &p.Author, &p.Content, &p.Downloads, &p.CreatedAt, &p.UpdatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Package{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "package not found"), domainerrors.CtxPackage, name)
	}
	return p, err
}

// ListPackages returns packages without content, most downloaded first.
func (s *Store) ListPackages(ctx context.Context) ([]Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list packages", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT name, description, version, author, downloads, created_at_utc, updated_at_utc
FROM packages ORDER BY downloads DESC, name ASC`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Package, 0)
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.Name, &p.Description, &p.Version, &p.Author, &p.Downloads, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// IncrementDownloads bumps the download counter and returns the package.
func (s *Store) IncrementDownloads(ctx context.Context, name string) (Package, error) {
	s.mu.Lock()
	var affected int64
	err := s.withRetry("increment downloads", func() error {
		res, err := s.db.ExecContext(ctx, `UPDATE packages SET downloads = downloads + 1 WHERE name = ?`, strings.TrimSpace(name))
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return Package{}, err
	}
	if affected == 0 {
		return Package{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "package not found"), domainerrors.CtxPackage, name)
	}
	return s.GetPackage(ctx, name)
}
