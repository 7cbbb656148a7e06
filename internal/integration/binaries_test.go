//go:build integration

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// findBinary returns the path to a built binary. The binaries should be
// built into bin/ before running integration tests:
//
//	go build -o bin/ ./cmd/...
func findBinary(t *testing.T, name string) string {
	t.Helper()

	cwd, _ := os.Getwd()

	// Tests are in internal/integration/, binaries are in bin/
	binPaths := []string{
		filepath.Join(cwd, "..", "..", "bin", name),
		filepath.Join(cwd, "bin", name),
	}

	for _, binPath := range binPaths {
		absPath, _ := filepath.Abs(binPath)
		if _, err := os.Stat(absPath); err == nil {
			return absPath
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path
	}

	t.Fatalf("%s binary not found. Run 'go build -o bin/ ./cmd/...' first or ensure it is in PATH", name)
	return ""
}
