package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDir wraps t.TempDir for consistency and future shared setup.
func TempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// Fixture reads testdata/<name> relative to the package under test.
func Fixture(t *testing.T, name string) []byte {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return data
}

// WriteFile writes data under dir and returns the full path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
