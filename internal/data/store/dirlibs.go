// # internal/data/store/dirlibs.go
package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirLibraries resolves imports against a directory of .neko files, the
// layout the installer writes under the neko home.
type DirLibraries struct {
	Dir string
}

func (d DirLibraries) LookupLibrary(_ context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false, nil
	}
	data, err := os.ReadFile(filepath.Join(d.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Install writes libs into the directory, replacing files of the same name.
func (d DirLibraries) Install(libs map[string]string) ([]string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return nil, err
	}
	written := make([]string, 0, len(libs))
	for _, name := range sortedKeys(libs) {
		target := filepath.Join(d.Dir, name)
		if err := os.WriteFile(target, []byte(libs[name]), 0o644); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

// Chain tries each source in order and returns the first hit.
type Chain []interface {
	LookupLibrary(ctx context.Context, name string) (string, bool, error)
}

func (c Chain) LookupLibrary(ctx context.Context, name string) (string, bool, error) {
	var firstErr error
	for _, src := range c {
		if src == nil {
			continue
		}
		content, found, err := src.LookupLibrary(ctx, name)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if found {
			return content, true, nil
		}
	}
	return "", false, firstErr
}
