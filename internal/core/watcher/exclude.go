// # internal/core/watcher/exclude.go
package watcher

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Excluder matches slash paths relative to a root against exclude globs
// such as "**/node_modules/**".
type Excluder struct {
	globs []glob.Glob
}

func NewExcluder(patterns []string) (*Excluder, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return &Excluder{globs: out}, nil
}

// Match reports whether rel (relative to the watched root) is excluded.
func (e *Excluder) Match(rel string, dir bool) bool {
	if e == nil || len(e.globs) == 0 {
		return false
	}
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	candidates := []string{rel, "/" + rel}
	if dir {
		candidates = append(candidates, "/"+rel+"/")
	}
	for _, g := range e.globs {
		for _, c := range candidates {
			if g.Match(c) {
				return true
			}
		}
	}
	return false
}

// IsSource reports whether path is a nekoScript source file.
func IsSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SourceExt)
}

const SourceExt = ".neko"
