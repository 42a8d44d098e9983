package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// FixtureDir returns the directory holding the small source data set
// used across package tests.
func FixtureDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", "econ")
}

// CopyFixtures copies the fixture data set into a temp directory that the
// test may modify freely, and returns that directory.
func CopyFixtures(t *testing.T) string {
	t.Helper()

	src := FixtureDir()
	dst := t.TempDir()

	entries, err := os.ReadDir(src)
	if err != nil {
		t.Fatalf("Failed to read fixtures: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(src, e.Name()))
		if err != nil {
			t.Fatalf("Failed to read fixture %s: %v", e.Name(), err)
		}
		WriteFile(t, dst, e.Name(), string(data))
	}
	return dst
}

// WriteFile writes content to dir/name, replacing any existing file.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}
