// # internal/core/config/paths.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// homeDirName is the per-user installation directory.
const homeDirName = ".neko-script"

type ResolvedPaths struct {
	Home        string
	LibsDir     string
	ProjectRoot string
	StateDir    string
	DatabaseDir string
	DBPath      string
	OutDir      string
}

// ResolvePaths anchors every configured path. Home-relative paths (state,
// database) resolve under Home; the output directory resolves under the
// project root.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	home := cfg.Paths.Home
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return ResolvedPaths{}, fmt.Errorf("resolve user home: %w", err)
		}
		home = filepath.Join(userHome, homeDirName)
	}
	home = ResolveRelative(cwd, home)

	projectRoot := cfg.Paths.ProjectRoot
	if projectRoot != "" {
		projectRoot = ResolveRelative(cwd, projectRoot)
	} else {
		projectRoot = DetectProjectRoot(cwd)
	}

	databaseDir := ResolveRelative(home, cfg.Paths.DatabaseDir)
	dbPath := cfg.DB.Path
	if filepath.IsAbs(dbPath) {
		dbPath = filepath.Clean(dbPath)
	} else {
		dbPath = filepath.Join(databaseDir, dbPath)
	}

	return ResolvedPaths{
		Home:        home,
		LibsDir:     filepath.Join(home, "libs"),
		ProjectRoot: projectRoot,
		StateDir:    ResolveRelative(home, cfg.Paths.StateDir),
		DatabaseDir: databaseDir,
		DBPath:      filepath.Clean(dbPath),
		OutDir:      ResolveRelative(projectRoot, cfg.Transpile.OutDir),
	}, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// DetectProjectRoot walks up from start looking for a project marker and
// falls back to start itself.
func DetectProjectRoot(start string) string {
	markers := []string{FileName, "neko.config.json", ".git"}

	abs, err := filepath.Abs(start)
	if err != nil {
		return filepath.Clean(start)
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		abs = filepath.Dir(abs)
	}
	for root := abs; ; {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
				return filepath.Clean(root)
			}
		}
		parent := filepath.Dir(root)
		if parent == root {
			break
		}
		root = parent
	}
	return abs
}
