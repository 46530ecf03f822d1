// # internal/data/store/files.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"path"
	"sort"
	"strings"

	domainerrors "nekoscript/internal/core/errors"
	"nekoscript/internal/shared/util"
)

// FileEntry is one workspace file or folder, addressed by a rooted slash path.
type FileEntry struct {
	Path       string `json:"path"`
	Name       string `json:"name"`
	ParentPath string `json:"parent_path"`
	IsFolder   bool   `json:"is_folder"`
	Content    string `json:"content,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// FileTreeItem is a node of the workspace tree returned by Tree.
type FileTreeItem struct {
	Name     string          `json:"name"`
	Path     string          `json:"path"`
	IsFolder bool            `json:"is_folder"`
	Children []*FileTreeItem `json:"children,omitempty"`
}

func workspacePath(raw string) (string, error) {
	p, err := util.NormalizeWorkspacePath(raw)
	if err != nil {
		return "", domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid workspace path"), domainerrors.CtxPath, raw)
	}
	if p == "/" {
		return "", domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "workspace root cannot be addressed"), domainerrors.CtxPath, raw)
	}
	return p, nil
}

func parentOf(p string) string {
	parent := path.Dir(p)
	if parent == "/" {
		return ""
	}
	return parent
}

// CreateFile stores a new file, creating missing parent folders.
func (s *Store) CreateFile(ctx context.Context, rawPath, content string) (FileEntry, error) {
	return s.createEntry(ctx, rawPath, content, false)
}

// CreateFolder stores a new folder, creating missing parent folders.
func (s *Store) CreateFolder(ctx context.Context, rawPath string) (FileEntry, error) {
	return s.createEntry(ctx, rawPath, "", true)
}

func (s *Store) createEntry(ctx context.Context, rawPath, content string, folder bool) (FileEntry, error) {
	p, err := workspacePath(rawPath)
	if err != nil {
		return FileEntry{}, err
	}

	s.mu.Lock()
	err = s.inTx(ctx, "create file", func(tx *sql.Tx) error {
		for _, dir := range ancestors(p) {
			var isFolder int
			scanErr := tx.QueryRowContext(ctx, `SELECT is_folder FROM files WHERE path = ?`, dir).Scan(&isFolder)
			switch {
			case errors.Is(scanErr, sql.ErrNoRows):
				if err := insertEntry(ctx, tx, dir, "", true); err != nil {
					return err
				}
			case scanErr != nil:
				return scanErr
			case isFolder == 0:
				return domainerrors.AddContext(
					domainerrors.New(domainerrors.CodeConflict, "parent is a file"), domainerrors.CtxPath, dir)
			}
		}
		return insertEntry(ctx, tx, p, content, folder)
	})
	s.mu.Unlock()
	if isUniqueViolation(err) {
		return FileEntry{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeConflict, "path already exists"), domainerrors.CtxPath, p)
	}
	if err != nil {
		return FileEntry{}, err
	}
	return s.GetFile(ctx, p)
}

func insertEntry(ctx context.Context, tx *sql.Tx, p, content string, folder bool) error {
	ts := now()
	_, err := tx.ExecContext(ctx, `
INSERT INTO files (path, name, parent_path, is_folder, content, created_at_utc, updated_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)`, p, path.Base(p), parentOf(p), boolInt(folder), content, ts, ts)
	return err
}

// ancestors lists the folders above p, outermost first.
func ancestors(p string) []string {
	var out []string
	for dir := parentOf(p); dir != ""; dir = parentOf(dir) {
		out = append(out, dir)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// GetFile returns one entry with its content.
func (s *Store) GetFile(ctx context.Context, rawPath string) (FileEntry, error) {
	p, err := workspacePath(rawPath)
	if err != nil {
		return FileEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		e      FileEntry
		folder int
	)
	err = s.withRetry("get file", func() error {
		return s.db.QueryRowContext(ctx, `
SELECT path, name, parent_path, is_folder, content, created_at_utc, updated_at_utc
FROM files WHERE path = ?`, p).Scan(&e.Path, &e.Name, &e.ParentPath, &folder, &e.Content, &e.CreatedAt, &e.UpdatedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return FileEntry{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "file not found"), domainerrors.CtxPath, p)
	}
	e.IsFolder = folder != 0
	return e, err
}

// UpdateFile replaces the content of an existing file.
func (s *Store) UpdateFile(ctx context.Context, rawPath, content string) (FileEntry, error) {
	p, err := workspacePath(rawPath)
	if err != nil {
		return FileEntry{}, err
	}

	s.mu.Lock()
	var affected int64
	err = s.withRetry("update file", func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE files SET content = ?, updated_at_utc = ? WHERE path = ? AND is_folder = 0`, content, now(), p)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return FileEntry{}, err
	}
	if affected == 0 {
		return FileEntry{}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "file not found"), domainerrors.CtxPath, p)
	}
	return s.GetFile(ctx, p)
}

// DeleteFile removes an entry and, for folders, everything beneath it. It
// returns the number of removed entries.
func (s *Store) DeleteFile(ctx context.Context, rawPath string) (int, error) {
	p, err := workspacePath(rawPath)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	var affected int64
	err = s.withRetry("delete file", func() error {
		prefix := p + "/"
		res, err := s.db.ExecContext(ctx,
			`DELETE FROM files WHERE path = ? OR substr(path, 1, ?) = ?`, p, len(prefix), prefix)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	s.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeNotFound, "file not found"), domainerrors.CtxPath, p)
	}
	return int(affected), nil
}

// ListFiles returns every entry without content, ordered by path.
func (s *Store) ListFiles(ctx context.Context) ([]FileEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list files", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT path, name, parent_path, is_folder, created_at_utc, updated_at_utc FROM files ORDER BY path`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]FileEntry, 0)
	for rows.Next() {
		var (
			e      FileEntry
			folder int
		)
		if err := rows.Scan(&e.Path, &e.Name, &e.ParentPath, &folder, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.IsFolder = folder != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// Tree nests the workspace entries under their parents. Folders sort before
// files, then by name.
func (s *Store) Tree(ctx context.Context) ([]*FileTreeItem, error) {
	entries, err := s.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(entries), nil
}

func BuildTree(entries []FileEntry) []*FileTreeItem {
	nodes := make(map[string]*FileTreeItem, len(entries))
	for _, e := range entries {
		nodes[e.Path] = &FileTreeItem{Name: e.Name, Path: e.Path, IsFolder: e.IsFolder}
	}
	roots := make([]*FileTreeItem, 0)
	for _, e := range entries {
		node := nodes[e.Path]
		if parent, ok := nodes[e.ParentPath]; ok && e.ParentPath != "" {
			parent.Children = append(parent.Children, node)
			continue
		}
		roots = append(roots, node)
	}
	sortTree(roots)
	return roots
}

func sortTree(items []*FileTreeItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFolder != items[j].IsFolder {
			return items[i].IsFolder
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	for _, item := range items {
		sortTree(item.Children)
	}
}
