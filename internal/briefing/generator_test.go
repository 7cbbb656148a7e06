package briefing

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qazz92/oh-my-droid/internal/modes"
	"github.com/qazz92/oh-my-droid/internal/staleness"
)

func setup(t *testing.T) (*modes.StateStore, string) {
	t.Helper()
	stateDir := filepath.Join(t.TempDir(), ".omd")
	states := modes.NewStateStore(modes.Options{
		ProjectDir: filepath.Join(stateDir, "state"),
		Policy:     staleness.ModePolicy{StaleAfter: 2 * time.Hour},
	})
	return states, stateDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateEmpty(t *testing.T) {
	t.Parallel()
	states, stateDir := setup(t)

	b := Generate(states, stateDir, "sess-1")
	if !b.Empty() || b.Render() != "" {
		t.Errorf("Expected empty briefing, got %q", b.Render())
	}
}

func TestGenerateOrderAndContent(t *testing.T) {
	t.Parallel()
	states, stateDir := setup(t)

	states.Activate(modes.Autopilot, "build the api", "sess-1")
	states.Activate(modes.Ralph, "fix the tests", "sess-1")
	states.Activate(modes.Ultrawork, "fix the tests", "sess-1")
	writeFile(t, TodosPath(stateDir), `{"todos": [
		{"content": "a", "status": "pending"},
		{"content": "b", "status": "in_progress"},
		{"content": "c", "status": "completed"},
		{"content": "d", "status": "cancelled"}
	]}`)

	b := Generate(states, stateDir, "sess-1")

	var kinds []string
	for _, n := range b.Notices {
		kinds = append(kinds, n.Kind)
	}
	want := []string{NoticeUltrawork, NoticeRalph, NoticeAutopilot, NoticeTodos}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Fatalf("Expected notices %v, got %v", want, kinds)
	}

	out := b.Render()
	if !strings.Contains(out, "[ULTRAWORK MODE RESTORED]") || !strings.Contains(out, "Original task: fix the tests") {
		t.Errorf("Expected ultrawork restore, got %q", out)
	}
	if !strings.Contains(out, "You have 2 incomplete tasks from a previous session.") {
		t.Errorf("Expected pending todo count, got %q", out)
	}
	if !strings.Contains(out, "---\n\n<session-restore>") {
		t.Errorf("Expected blocks joined by newline, got %q", out)
	}
	if b.PendingTodos != 2 {
		t.Errorf("Expected 2 pending todos, got %d", b.PendingTodos)
	}
}

func TestGenerateIgnoresOtherSessions(t *testing.T) {
	t.Parallel()
	states, stateDir := setup(t)

	states.Activate(modes.Ralph, "global", "")
	states.Activate(modes.Ultrawork, "other", "sess-2")
	writeFile(t, filepath.Join(stateDir, "state", "sessions", "sess-1", "autopilot-state.json"),
		`{"active": true, "session_id": "sess-2", "started_at": "`+staleness.FormatTimestamp(time.Now())+`"}`)

	b := Generate(states, stateDir, "sess-1")
	if !b.Empty() {
		t.Errorf("Expected nothing restored for sess-1, got %q", b.Render())
	}

	b = Generate(states, stateDir, "")
	if len(b.Notices) != 1 || b.Notices[0].Kind != NoticeRalph {
		t.Errorf("Expected global ralph without a session, got %+v", b.Notices)
	}
}

func TestGenerateSkipsStaleModes(t *testing.T) {
	t.Parallel()
	states, stateDir := setup(t)

	old := staleness.FormatTimestamp(time.Now().Add(-3 * time.Hour))
	writeFile(t, filepath.Join(stateDir, "state", "ralph-state.json"),
		`{"active": true, "started_at": "`+old+`", "last_checked_at": "`+old+`"}`)

	if b := Generate(states, stateDir, ""); !b.Empty() {
		t.Errorf("Expected stale ralph to be ignored, got %q", b.Render())
	}
}

func TestCountIncompleteTodos(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"object form", `{"todos": [{"status": "pending"}, {"status": "completed"}]}`, 1, false},
		{"bare list", `[{"status": "in_progress"}, {"status": "cancelled"}, {}]`, 2, false},
		{"no todos key", `{"items": []}`, 0, false},
		{"non-object items", `["x", 1, {"status": "pending"}]`, 1, false},
		{"invalid json", `{nope`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "-")+".json")
			writeFile(t, path, tt.content)

			got, err := CountIncompleteTodos(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}

	if n, err := CountIncompleteTodos(filepath.Join(dir, "missing.json")); err != nil || n != 0 {
		t.Errorf("Expected missing file to count zero, got %d %v", n, err)
	}
}
