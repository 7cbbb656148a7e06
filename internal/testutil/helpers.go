// Package testutil provides reusable test utilities for omd integration tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestEnv provides access to isolated test directories
type TestEnv struct {
	Home       string // Mocked HOME directory
	ProjectDir string // Test project directory
	GlobalDir  string // ~/.omd equivalent
	ProjectOMD string // .omd in project
	t          *testing.T
}

// SetupTestEnv creates an isolated test environment with mocked HOME.
// Uses t.TempDir() for automatic cleanup and t.Setenv() for automatic env restoration.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpHome := t.TempDir()
	tmpProject := t.TempDir()

	globalDir := filepath.Join(tmpHome, ".omd")
	projectOMD := filepath.Join(tmpProject, ".omd")

	if err := os.MkdirAll(globalDir, 0755); err != nil {
		t.Fatalf("Failed to create global .omd: %v", err)
	}

	if err := os.MkdirAll(projectOMD, 0755); err != nil {
		t.Fatalf("Failed to create project .omd: %v", err)
	}

	// Set HOME to temp directory (auto-restored after test)
	t.Setenv("HOME", tmpHome)

	return &TestEnv{
		Home:       tmpHome,
		ProjectDir: tmpProject,
		GlobalDir:  globalDir,
		ProjectOMD: projectOMD,
		t:          t,
	}
}

// CreateFile creates a file with the given content in the test environment.
// Relative paths are resolved against the project directory.
func (e *TestEnv) CreateFile(path, content string) {
	e.t.Helper()

	fullPath := e.resolve(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		e.t.Fatalf("Failed to write file %s: %v", fullPath, err)
	}
}

// CreateProjectFile creates a file relative to the project directory.
func (e *TestEnv) CreateProjectFile(relPath, content string) {
	e.t.Helper()
	e.CreateFile(filepath.Join(e.ProjectDir, relPath), content)
}

// CreateGlobalFile creates a file relative to ~/.omd.
func (e *TestEnv) CreateGlobalFile(relPath, content string) {
	e.t.Helper()
	e.CreateFile(filepath.Join(e.GlobalDir, relPath), content)
}

// ReadFile reads a file from the test environment.
func (e *TestEnv) ReadFile(path string) string {
	e.t.Helper()

	data, err := os.ReadFile(e.resolve(path))
	if err != nil {
		e.t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(data)
}

// FileExists checks if a file exists in the test environment.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()

	_, err := os.Stat(e.resolve(path))
	return err == nil
}

// ModeStatePath returns where a mode's state lives, session scoped when
// sessionID is set.
func (e *TestEnv) ModeStatePath(mode, sessionID string) string {
	if sessionID == "" {
		return filepath.Join(e.ProjectOMD, "state", mode+"-state.json")
	}
	return filepath.Join(e.ProjectOMD, "state", "sessions", sessionID, mode+"-state.json")
}

// TaskDir returns the default background task directory.
func (e *TestEnv) TaskDir() string {
	return filepath.Join(e.GlobalDir, "background-tasks")
}

func (e *TestEnv) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.ProjectDir, path)
}
