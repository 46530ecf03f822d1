// # internal/core/config/env.go
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvHome overrides paths.home, matching the installer's variable.
const EnvHome = "NEKO_HOME"

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NEKO_[SECTION]_[KEY] (e.g., NEKO_SERVER_ADDRESS).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Paths.Home, EnvHome)
	setEnvString(&cfg.Paths.Home, "NEKO_PATHS_HOME")
	setEnvString(&cfg.Paths.ProjectRoot, "NEKO_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "NEKO_PATHS_STATE_DIR")
	setEnvString(&cfg.Paths.DatabaseDir, "NEKO_PATHS_DATABASE_DIR")

	setEnvBool(&cfg.DB.Enabled, "NEKO_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "NEKO_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "NEKO_DB_BUSY_TIMEOUT")

	setEnvBool(&cfg.Interpret.TraceBodies, "NEKO_INTERPRET_TRACE_BODIES")
	setEnvInt(&cfg.Interpret.MaxSourceBytes, "NEKO_INTERPRET_MAX_SOURCE_BYTES")

	setEnvString(&cfg.Transpile.OutDir, "NEKO_TRANSPILE_OUT_DIR")

	setEnvString(&cfg.Server.Address, "NEKO_SERVER_ADDRESS")
	setEnvFloat64(&cfg.Server.RateLimit, "NEKO_SERVER_RATE_LIMIT")
	setEnvInt(&cfg.Server.RateBurst, "NEKO_SERVER_RATE_BURST")
	setEnvDuration(&cfg.Server.RequestTimeout, "NEKO_SERVER_REQUEST_TIMEOUT")
	setEnvBool(&cfg.Server.TrustProxy, "NEKO_SERVER_TRUST_PROXY")

	setEnvDuration(&cfg.Watch.Debounce, "NEKO_WATCH_DEBOUNCE")

	setEnvInt(&cfg.Queue.Capacity, "NEKO_QUEUE_CAPACITY")
	setEnvBool(&cfg.Queue.Spool, "NEKO_QUEUE_SPOOL")

	setEnvBool(&cfg.Observability.Enabled, "NEKO_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NEKO_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "NEKO_OBSERVABILITY_ENABLE_TRACING")
	setEnvBool(&cfg.Observability.EnableMetrics, "NEKO_OBSERVABILITY_ENABLE_METRICS")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.TrimSpace(val)
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
