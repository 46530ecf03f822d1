// # internal/core/config/loader.go
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// Parse decodes, defaults, and validates a TOML document.
func Parse(data string) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, &UnknownKeysError{Keys: keys}
	}

	normalize(&cfg)
	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults
// otherwise. Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	found := true
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, err
		}
		cfg, found = DefaultConfig(), false
	}
	ApplyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, found, err
	}
	return cfg, found, nil
}

// Discover returns the first neko.toml found walking up from dir.
func Discover(dir string) (string, bool) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		candidate := filepath.Join(abs, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", false
		}
		abs = parent
	}
}

// UnknownKeysError reports keys present in the file but not in Config.
type UnknownKeysError struct {
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return "unknown configuration keys: " + strings.Join(e.Keys, ", ")
}

func normalize(cfg *Config) {
	cfg.Paths.Home = strings.TrimSpace(cfg.Paths.Home)
	cfg.Paths.ProjectRoot = strings.TrimSpace(cfg.Paths.ProjectRoot)
	cfg.Paths.StateDir = strings.TrimSpace(cfg.Paths.StateDir)
	cfg.Paths.DatabaseDir = strings.TrimSpace(cfg.Paths.DatabaseDir)
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.Transpile.OutDir = strings.TrimSpace(cfg.Transpile.OutDir)
	cfg.Server.Address = strings.TrimSpace(cfg.Server.Address)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)
	if len(cfg.Watch.Exclude) > 0 {
		out := make([]string, 0, len(cfg.Watch.Exclude))
		for _, p := range cfg.Watch.Exclude {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		cfg.Watch.Exclude = out
	}
}
