// # internal/core/config/config.go
package config

import (
	"time"
)

// FileName is the project configuration file looked up in the working
// directory.
const FileName = "neko.toml"

type Config struct {
	Version       int           `toml:"version"`
	Paths         Paths         `toml:"paths"`
	DB            Database      `toml:"db"`
	Interpret     Interpret     `toml:"interpret"`
	Transpile     Transpile     `toml:"transpile"`
	Server        Server        `toml:"server"`
	Watch         Watch         `toml:"watch"`
	Queue         Queue         `toml:"queue"`
	Observability Observability `toml:"observability"`
}

type Paths struct {
	// Home holds installed libraries and the shared database. Defaults to
	// $NEKO_HOME or ~/.neko-script.
	Home        string `toml:"home"`
	ProjectRoot string `toml:"project_root"`
	StateDir    string `toml:"state_dir"`
	DatabaseDir string `toml:"database_dir"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Interpret struct {
	TraceBodies    bool `toml:"trace_bodies"`
	MaxSourceBytes int  `toml:"max_source_bytes"`
}

type Transpile struct {
	OutDir string `toml:"out_dir"`
	Verify *bool  `toml:"verify"`
}

// VerifyEnabled defaults to true when unset.
func (t Transpile) VerifyEnabled() bool {
	if t.Verify == nil {
		return true
	}
	return *t.Verify
}

type Server struct {
	Address        string        `toml:"address"`
	RateLimit      float64       `toml:"rate_limit"`
	RateBurst      int           `toml:"rate_burst"`
	MaxBodyBytes   int64         `toml:"max_body_bytes"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	TrustProxy     bool          `toml:"trust_proxy"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Exclude  []string      `toml:"exclude"`
}

type Queue struct {
	Capacity      int           `toml:"capacity"`
	BatchSize     int           `toml:"batch_size"`
	FlushInterval time.Duration `toml:"flush_interval"`
	// Spool spills run records that overflow the in-memory queue to
	// <state_dir>/run-spool.db instead of dropping them.
	Spool bool `toml:"spool"`
}

type Observability struct {
	Enabled       bool   `toml:"enabled"`
	ServiceName   string `toml:"service_name"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	EnableMetrics bool   `toml:"enable_metrics"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if cfg.Paths.StateDir == "" {
		cfg.Paths.StateDir = "state"
	}
	if cfg.Paths.DatabaseDir == "" {
		cfg.Paths.DatabaseDir = "database"
	}

	if cfg.DB.Driver == "" {
		cfg.DB.Driver = "sqlite"
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = "nekoscript.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
	if !cfg.DB.Enabled && cfg.Version <= 1 {
		// v1 files predate the db block.
		cfg.DB.Enabled = true
	}

	if cfg.Interpret.MaxSourceBytes <= 0 {
		cfg.Interpret.MaxSourceBytes = 1 << 20
	}

	if cfg.Transpile.OutDir == "" {
		cfg.Transpile.OutDir = "dist"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:5000"
	}
	if cfg.Server.RateLimit <= 0 {
		cfg.Server.RateLimit = 5
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 10
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 2 << 20
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 300 * time.Millisecond
	}
	if cfg.Watch.Exclude == nil {
		cfg.Watch.Exclude = []string{"**/node_modules/**", "**/.git/**", "**/dist/**"}
	}

	if cfg.Queue.Capacity <= 0 {
		cfg.Queue.Capacity = 256
	}
	if cfg.Queue.BatchSize <= 0 {
		cfg.Queue.BatchSize = 32
	}
	if cfg.Queue.FlushInterval <= 0 {
		cfg.Queue.FlushInterval = 200 * time.Millisecond
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "nekoscript"
	}
}
