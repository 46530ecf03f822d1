// # internal/core/watcher/watcher_test.go
package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	require.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	_, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, func([]string) {})
	assert.Error(t, err)
}

func TestExcluder(t *testing.T) {
	ex, err := NewExcluder([]string{"**/node_modules/**", "**/dist/**", "*.tmp.neko"})
	require.NoError(t, err)

	assert.True(t, ex.Match("node_modules", true))
	assert.True(t, ex.Match("node_modules/a/b.neko", false))
	assert.True(t, ex.Match("src/dist/out.neko", false))
	assert.True(t, ex.Match("x.tmp.neko", false))
	assert.False(t, ex.Match("src/main.neko", false))
	assert.False(t, ex.Match("src", true))
	assert.False(t, ex.Match(".", true))

	var none *Excluder
	assert.False(t, none.Match("anything", false))
}

func TestIsSource(t *testing.T) {
	assert.True(t, IsSource("a/main.neko"))
	assert.True(t, IsSource("MAIN.NEKO"))
	assert.False(t, IsSource("main.js"))
}

func waitPaths(t *testing.T, ch <-chan []string, timeout time.Duration) []string {
	t.Helper()
	select {
	case paths := <-ch:
		return paths
	case <-time.After(timeout):
		return nil
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(tmpDir, "dist"), 0o755))

	changed := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, []string{"**/dist/**"}, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))

	src := filepath.Join(tmpDir, "main.neko")
	require.NoError(t, os.WriteFile(src, []byte(`neko = ("a");`), 0o644))
	paths := waitPaths(t, changed, 2*time.Second)
	assert.Contains(t, paths, src)

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "dist", "main.neko"), []byte("x"), 0o644))
	assert.Nil(t, waitPaths(t, changed, 300*time.Millisecond), "non-source and excluded files are ignored")

	sub := filepath.Join(tmpDir, "lib")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(sub, "util.neko")
	require.NoError(t, os.WriteFile(nested, []byte(`neko = ("b");`), 0o644))
	paths = waitPaths(t, changed, 2*time.Second)
	assert.Contains(t, paths, nested)
}

func TestWatcher_UnchangedContentIsDropped(t *testing.T) {
	tmpDir := t.TempDir()
	src := filepath.Join(tmpDir, "main.neko")
	require.NoError(t, os.WriteFile(src, []byte(`neko = ("a");`), 0o644))

	changed := make(chan []string, 10)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch([]string{tmpDir}))
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(src, []byte(`neko = ("a");`), 0o644))
	assert.Nil(t, waitPaths(t, changed, 300*time.Millisecond))

	require.NoError(t, os.WriteFile(src, []byte(`neko = ("b");`), 0o644))
	assert.Equal(t, []string{src}, waitPaths(t, changed, 2*time.Second))

	require.NoError(t, os.Remove(src))
	assert.Equal(t, []string{src}, waitPaths(t, changed, 2*time.Second))
}
