// # internal/core/config/validator.go
package config

import (
	"fmt"
	"net"

	"github.com/gobwas/glob"
)

// Validate checks a defaulted configuration.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateDatabase,
		validateServer,
		validateWatch,
		validateQueue,
		validateObservability,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if cfg.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateServer(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.Address); err != nil {
		return fmt.Errorf("server.address %q is invalid: %w", cfg.Server.Address, err)
	}
	if cfg.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be > 0")
	}
	if cfg.Server.RateBurst < 1 {
		return fmt.Errorf("server.rate_burst must be >= 1")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for i, pattern := range cfg.Watch.Exclude {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return fmt.Errorf("watch.exclude[%d] %q is not a valid glob: %w", i, pattern, err)
		}
	}
	return nil
}

func validateQueue(cfg *Config) error {
	if cfg.Queue.BatchSize > cfg.Queue.Capacity {
		return fmt.Errorf("queue.batch_size (%d) must not exceed queue.capacity (%d)", cfg.Queue.BatchSize, cfg.Queue.Capacity)
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint != "" {
		if _, _, err := net.SplitHostPort(cfg.Observability.OTLPEndpoint); err != nil {
			return fmt.Errorf("observability.otlp_endpoint must be host:port: %w", err)
		}
	}
	return nil
}
