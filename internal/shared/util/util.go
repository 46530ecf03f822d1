// # internal/shared/util/util.go
package util

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// NormalizeWorkspacePath turns a user-supplied workspace path into a rooted
// slash path such as "/src/main.neko". Paths escaping the root are rejected.
func NormalizeWorkspacePath(s string) (string, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	if raw == "" {
		return "", fmt.Errorf("path must not be empty")
	}
	for _, part := range strings.Split(raw, "/") {
		if part == ".." {
			return "", fmt.Errorf("path %q escapes the workspace", s)
		}
	}
	return path.Clean("/" + raw), nil
}

// WriteFileWithDirs creates parent directories (0755) and writes the file with perm.
func WriteFileWithDirs(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, perm)
}

// WriteStringWithDirs writes string content with parent directories created.
func WriteStringWithDirs(path, content string, perm fs.FileMode) error {
	return WriteFileWithDirs(path, []byte(content), perm)
}
