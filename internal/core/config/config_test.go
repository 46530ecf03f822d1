// # internal/core/config/config_test.go
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := `
version = 1

[paths]
home = "/opt/neko"

[interpret]
trace_bodies = true

[server]
address = "0.0.0.0:8080"
rate_limit = 2.5
rate_burst = 4

[watch]
debounce = "1s"
exclude = ["**/tmp/**", "  "]

[observability]
enabled = true
otlp_endpoint = "localhost:4317"
enable_tracing = true
`
	cfg, err := Parse(content)
	require.NoError(t, err)
	assert.Equal(t, "/opt/neko", cfg.Paths.Home)
	assert.True(t, cfg.Interpret.TraceBodies)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, 4, cfg.Server.RateBurst)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, []string{"**/tmp/**"}, cfg.Watch.Exclude)
	assert.True(t, cfg.Observability.EnableTracing)

	// Defaults
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "nekoscript.db", cfg.DB.Path)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "dist", cfg.Transpile.OutDir)
	assert.True(t, cfg.Transpile.VerifyEnabled())
	assert.Equal(t, 256, cfg.Queue.Capacity)
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"unknown key":    "colour = \"bleu\"",
		"bad version":    "version = 3",
		"bad driver":     "[db]\ndriver = \"postgres\"",
		"bad address":    "[server]\naddress = \"nope\"",
		"bad glob":       "[watch]\nexclude = [\"[\"]",
		"batch > cap":    "[queue]\ncapacity = 4\nbatch_size = 8",
		"bad otlp":       "[observability]\nenable_tracing = true\notlp_endpoint = \"http//x\"",
		"invalid syntax": "[server",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(content)
			assert.Error(t, err)
		})
	}
}

func TestUnknownKeysError(t *testing.T) {
	_, err := Parse("[server]\nport = 1")
	var uk *UnknownKeysError
	require.ErrorAs(t, err, &uk)
	assert.Equal(t, []string{"server.port"}, uk.Keys)
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvHome, filepath.Join(dir, "home"))
	t.Setenv("NEKO_SERVER_RATE_BURST", "42")

	cfg, found, err := LoadOrDefault(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, filepath.Join(dir, "home"), cfg.Paths.Home)
	assert.Equal(t, 42, cfg.Server.RateBurst)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("[interpret]\ntrace_bodies = true\n"), 0o644))
	cfg, found, err = LoadOrDefault(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, cfg.Interpret.TraceBodies)
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "src", "lib")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), nil, 0o644))

	path, ok := Discover(nested)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, FileName), path)
}

func TestResolvePaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), nil, 0o644))
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))

	cfg := DefaultConfig()
	cfg.Paths.Home = "/srv/neko"
	paths, err := ResolvePaths(cfg, src)
	require.NoError(t, err)
	assert.Equal(t, "/srv/neko", paths.Home)
	assert.Equal(t, "/srv/neko/libs", paths.LibsDir)
	assert.Equal(t, "/srv/neko/database/nekoscript.db", paths.DBPath)
	assert.Equal(t, root, paths.ProjectRoot)
	assert.Equal(t, filepath.Join(root, "dist"), paths.OutDir)

	_, err = ResolvePaths(cfg, " ")
	assert.Error(t, err)
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("[interpret]\ntrace_bodies = false\n"), 0o644))

	reloaded := make(chan *Config, 4)
	w := NewWatcher(path, func(c *Config) { reloaded <- c })
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("[interpret]\ntrace_bodies = true\n"), 0o644))
	select {
	case cfg := <-reloaded:
		assert.True(t, cfg.Interpret.TraceBodies)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}
}
