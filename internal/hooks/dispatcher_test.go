package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qazz92/oh-my-droid/internal/tasks"
	"github.com/qazz92/oh-my-droid/internal/workspace"
	"github.com/qazz92/oh-my-droid/pkg/types"
)

type hookEnv struct {
	home    string
	project string
	d       *Dispatcher
}

func newHookEnv(t *testing.T) *hookEnv {
	t.Helper()
	home := t.TempDir()
	return &hookEnv{home: home, project: t.TempDir(), d: NewDispatcher(home)}
}

func (e *hookEnv) run(t *testing.T, event Event, fields map[string]any) types.HookOutput {
	t.Helper()
	if _, ok := fields["cwd"]; !ok {
		fields["cwd"] = e.project
	}
	body, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := e.d.Run(context.Background(), event, bytes.NewReader(body), &buf); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var out types.HookOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Invalid hook output %q: %v", buf.String(), err)
	}
	if !out.Continue {
		t.Error("Expected continue to be true")
	}
	return out
}

func (e *hookEnv) manager(t *testing.T) *tasks.Manager {
	t.Helper()
	ws, err := workspace.Open(e.home, e.project)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })
	m, err := ws.Tasks(nil)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func contextOf(t *testing.T, out types.HookOutput, eventName string) string {
	t.Helper()
	if out.HookSpecificOutput == nil {
		t.Fatal("Expected hookSpecificOutput")
	}
	if out.HookSpecificOutput.HookEventName != eventName {
		t.Errorf("Expected hookEventName %s, got %s", eventName, out.HookSpecificOutput.HookEventName)
	}
	return out.HookSpecificOutput.AdditionalContext
}

func readState(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read state: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestRunUnparseableInput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := NewDispatcher(t.TempDir())
	if err := d.Run(context.Background(), EventStop, strings.NewReader("{oops"), &buf); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != `{"continue":true,"suppressOutput":true}` {
		t.Errorf("Expected default response, got %s", buf.String())
	}
}

func TestUserPromptSubmitActivatesModes(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	out := e.run(t, EventUserPromptSubmit, map[string]any{
		"prompt":     "ralph: fix the flaky build",
		"session_id": "s1",
	})

	text := contextOf(t, out, "UserPromptSubmit")
	if !strings.Contains(text, "Skill: oh-my-droid:ralph") || !strings.Contains(text, "Skill: oh-my-droid:ultrawork") {
		t.Errorf("Expected ralph and ultrawork skills, got:\n%s", text)
	}

	sessionDir := filepath.Join(e.project, ".omd", "state", "sessions", "s1")
	for _, mode := range []string{"ralph", "ultrawork"} {
		state := readState(t, filepath.Join(sessionDir, mode+"-state.json"))
		if state["active"] != true {
			t.Errorf("Expected %s to be active", mode)
		}
		if state["session_id"] != "s1" {
			t.Errorf("Expected %s session_id s1, got %v", mode, state["session_id"])
		}
	}
}

func TestUserPromptSubmitWithoutKeywords(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	out := e.run(t, EventUserPromptSubmit, map[string]any{"prompt": "rename this variable"})
	if out.HookSpecificOutput != nil || !out.SuppressOutput {
		t.Errorf("Expected silent response, got %+v", out)
	}
}

func TestStopReinforcesLiveModes(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	e.run(t, EventUserPromptSubmit, map[string]any{"prompt": "ralph ship it", "session_id": "s1"})

	for i := 1; i <= 2; i++ {
		out := e.run(t, EventStop, map[string]any{"session_id": "s1"})
		text := contextOf(t, out, "Stop")
		want := fmt.Sprintf("[RALPH MODE ACTIVE - Reinforcement #%d]", i)
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}

	state := readState(t, filepath.Join(e.project, ".omd", "state", "sessions", "s1", "ralph-state.json"))
	if state["reinforcement_count"] != float64(2) {
		t.Errorf("Expected reinforcement_count 2, got %v", state["reinforcement_count"])
	}
}

func TestStopWithoutModes(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	out := e.run(t, EventStop, map[string]any{"session_id": "s1"})
	if out.HookSpecificOutput != nil {
		t.Errorf("Expected silent response, got %+v", out.HookSpecificOutput)
	}
}

func TestCancelStopsContinuation(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	e.run(t, EventUserPromptSubmit, map[string]any{"prompt": "autopilot build it", "session_id": "s1"})
	e.run(t, EventUserPromptSubmit, map[string]any{"prompt": "cancelomd", "session_id": "s1"})

	out := e.run(t, EventStop, map[string]any{"session_id": "s1"})
	if out.HookSpecificOutput != nil {
		t.Errorf("Expected no continuation after cancel, got %q", out.HookSpecificOutput.AdditionalContext)
	}
}

func TestSessionStartRestoresModes(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	e.run(t, EventUserPromptSubmit, map[string]any{"prompt": "ralph finish the migration", "session_id": "s1"})

	out := e.run(t, EventSessionStart, map[string]any{"session_id": "s1"})
	text := contextOf(t, out, "SessionStart")
	if !strings.Contains(text, "[RALPH LOOP RESTORED]") {
		t.Errorf("Expected ralph restore notice, got:\n%s", text)
	}
	if !strings.Contains(text, "[ULTRAWORK MODE RESTORED]") {
		t.Errorf("Expected ultrawork restore notice, got:\n%s", text)
	}

	other := e.run(t, EventSessionStart, map[string]any{"session_id": "s2"})
	if other.HookSpecificOutput != nil {
		t.Errorf("Expected nothing to restore for another session, got %q", other.HookSpecificOutput.AdditionalContext)
	}
}

func TestSubagentStopCompletesTask(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	task, err := e.manager(t).Launch(context.Background(), tasks.LaunchRequest{
		Description: "search",
		Prompt:      "find callers",
		Agent:       "explorer",
	})
	if err != nil {
		t.Fatal(err)
	}

	transcript := filepath.Join(t.TempDir(), "t.jsonl")
	if err := os.WriteFile(transcript, []byte(`{"role":"assistant","content":[{"type":"text","text":"3 callers"}]}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	out := e.run(t, EventSubagentStop, map[string]any{
		"session_id":      task.SessionID,
		"transcript_path": transcript,
	})
	if out.HookSpecificOutput != nil {
		t.Error("Expected silent response")
	}

	done, ok := e.manager(t).Get(task.ID)
	if !ok {
		t.Fatal("Expected task to be loadable")
	}
	if done.Status != tasks.StatusCompleted {
		t.Errorf("Expected completed, got %s", done.Status)
	}
	if done.Result != "3 callers" {
		t.Errorf("Expected result '3 callers', got %q", done.Result)
	}
}

func TestSubagentStopUnknownSession(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	out := e.run(t, EventSubagentStop, map[string]any{"session_id": "ses_unknown"})
	if !out.SuppressOutput {
		t.Error("Expected default response")
	}
}

func TestPostToolUseRecordsHeartbeat(t *testing.T) {
	t.Parallel()
	e := newHookEnv(t)

	task, err := e.manager(t).Launch(context.Background(), tasks.LaunchRequest{Agent: "executor-low", Prompt: "x"})
	if err != nil {
		t.Fatal(err)
	}

	e.run(t, EventPostToolUse, map[string]any{"session_id": task.SessionID, "tool_name": "Grep"})
	e.run(t, EventPostToolUse, map[string]any{"session_id": task.SessionID, "tool_name": "Edit"})

	got, _ := e.manager(t).Get(task.ID)
	if got.Progress.ToolCallCount != 2 {
		t.Errorf("Expected 2 tool calls, got %d", got.Progress.ToolCallCount)
	}
	if got.Progress.LastToolUsed != "Edit" {
		t.Errorf("Expected last tool Edit, got %s", got.Progress.LastToolUsed)
	}
}

// Not parallel: swaps an entry in the handler table.
func TestHandleRecoversPanic(t *testing.T) {
	orig := handlers[EventStop]
	handlers[EventStop] = func(context.Context, *workspace.Workspace, types.HookInput) (string, error) {
		panic("boom")
	}
	defer func() { handlers[EventStop] = orig }()

	out := NewDispatcher(t.TempDir()).Handle(context.Background(), EventStop, types.HookInput{Directory: t.TempDir()})
	if !out.Continue || !out.SuppressOutput || out.HookSpecificOutput != nil {
		t.Errorf("Expected default response after panic, got %+v", out)
	}
}
