package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, home, body string) {
	t.Helper()
	dir := filepath.Join(home, ".omd")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestOpenWithJournal(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	project := t.TempDir()

	ws, err := Open(home, project)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	if ws.Journal() == nil {
		t.Fatal("Expected journal to be open")
	}
	if ws.Recorder() == nil {
		t.Error("Expected a recorder")
	}
	if _, err := os.Stat(filepath.Join(home, ".omd", "journal.db")); err != nil {
		t.Errorf("Expected journal database under home: %v", err)
	}
	if ws.StateDir() != filepath.Join(project, ".omd") {
		t.Errorf("Unexpected state dir: %s", ws.StateDir())
	}
}

func TestOpenWithoutJournal(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeConfig(t, home, "journal:\n  enabled: false\n")

	ws, err := Open(home, t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	if ws.Journal() != nil {
		t.Error("Expected journal to be disabled")
	}
	// A nil *Journal must not leak into the interface.
	if ws.Recorder() != nil {
		t.Error("Expected nil recorder")
	}
}

func TestTasksAndModesAreCached(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	ws, err := Open(home, t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ws.Close()

	m1, err := ws.Tasks(nil)
	if err != nil {
		t.Fatalf("Tasks failed: %v", err)
	}
	m2, _ := ws.Tasks(nil)
	if m1 != m2 {
		t.Error("Expected the same manager on repeated calls")
	}
	if m1.Registry().Dir() != filepath.Join(home, ".omd", "background-tasks") {
		t.Errorf("Unexpected task dir: %s", m1.Registry().Dir())
	}

	if ws.Modes() != ws.Modes() {
		t.Error("Expected the same state store on repeated calls")
	}
}
