// # internal/shared/util/util_test.go
package util

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizeWorkspacePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "Rooted", input: "/src/main.neko", expected: "/src/main.neko"},
		{name: "Relative", input: "src/main.neko", expected: "/src/main.neko"},
		{name: "Backslashes", input: `libs\Web.neko`, expected: "/libs/Web.neko"},
		{name: "Dots", input: "./src//./a.neko", expected: "/src/a.neko"},
		{name: "Escape", input: "../etc/passwd", wantErr: true},
		{name: "Empty", input: "  ", wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeWorkspacePath(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestGetClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	if got := GetClientIP(r, false); got != "10.0.0.7" {
		t.Fatalf("expected remote address, got %q", got)
	}
	if got := GetClientIP(r, true); got != "203.0.113.9" {
		t.Fatalf("expected forwarded address, got %q", got)
	}
	r.Header.Del("X-Forwarded-For")
	r.Header.Set("X-Real-IP", "198.51.100.2")
	if got := GetClientIP(r, true); got != "198.51.100.2" {
		t.Fatalf("expected real ip, got %q", got)
	}
}

func TestWriteFileWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")
	content := []byte("hello")

	if err := WriteFileWithDirs(path, content, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != string(content) {
		t.Fatalf("expected %q, got %q", string(content), string(got))
	}
}

func TestWriteStringWithDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	if err := WriteStringWithDirs(path, "hello", 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", string(got))
	}
}
