// # internal/data/store/docs.go
package store

import (
	"context"
	"database/sql"
)

// Documentation is one reference entry shown by the docs endpoint.
type Documentation struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Content     string `json:"content"`
	CodeExample string `json:"code_example,omitempty"`
	Order       int    `json:"order"`
}

// DocItem is a Documentation entry as rendered inside a section.
type DocItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CodeExample string `json:"code_example,omitempty"`
}

// DocSection groups the entries of one category.
type DocSection struct {
	Title string    `json:"title"`
	Color string    `json:"color"`
	Items []DocItem `json:"items"`
}

var categoryColors = map[string]string{
	"fonctions":  "primary",
	"librairies": "secondary",
	"terminal":   "accent",
}

// AddDocumentation inserts one entry and returns its id.
func (s *Store) AddDocumentation(ctx context.Context, d Documentation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.withRetry("add documentation", func() error {
		res, err := s.db.ExecContext(ctx, `
INSERT INTO documentation (title, category, content, code_example, sort_order) VALUES (?, ?, ?, ?, ?)`,
			d.Title, d.Category, d.Content, d.CodeExample, d.Order)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListDocumentation returns entries ordered by category then order.
func (s *Store) ListDocumentation(ctx context.Context) ([]Documentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("list documentation", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, title, category, content, code_example, sort_order
FROM documentation ORDER BY category, sort_order, id`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Documentation, 0)
	for rows.Next() {
		var d Documentation
		if err := rows.Scan(&d.ID, &d.Title, &d.Category, &d.Content, &d.CodeExample, &d.Order); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DocumentationSections groups the documentation by category.
func (s *Store) DocumentationSections(ctx context.Context) ([]DocSection, error) {
	docs, err := s.ListDocumentation(ctx)
	if err != nil {
		return nil, err
	}
	return GroupDocumentation(docs), nil
}

// GroupDocumentation keeps the first-seen order of categories. Unknown
// categories are colored "primary".
func GroupDocumentation(docs []Documentation) []DocSection {
	sections := make([]DocSection, 0)
	index := make(map[string]int)
	for _, d := range docs {
		i, ok := index[d.Category]
		if !ok {
			color, known := categoryColors[d.Category]
			if !known {
				color = "primary"
			}
			i = len(sections)
			index[d.Category] = i
			sections = append(sections, DocSection{Title: d.Category, Color: color})
		}
		sections[i].Items = append(sections[i].Items, DocItem{
			Title:       d.Title,
			Description: d.Content,
			CodeExample: d.CodeExample,
		})
	}
	return sections
}
