package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

// TranscriptMessage is one line of a JSONL session transcript.
type TranscriptMessage struct {
	Role string
	Text string
}

// WriteTranscript writes messages as a JSONL transcript and returns its path.
func (e *TestEnv) WriteTranscript(name string, messages ...TranscriptMessage) string {
	e.t.Helper()

	var sb strings.Builder
	for _, m := range messages {
		line, err := json.Marshal(map[string]any{
			"role": m.Role,
			"content": []map[string]string{
				{"type": "text", "text": m.Text},
			},
		})
		if err != nil {
			e.t.Fatal(err)
		}
		sb.Write(line)
		sb.WriteByte('\n')
	}

	path := e.resolve(name)
	e.CreateFile(path, sb.String())
	return path
}

// WriteTodos writes .omd/todos.json with one entry per status.
func (e *TestEnv) WriteTodos(statuses ...string) {
	e.t.Helper()

	todos := make([]map[string]string, len(statuses))
	for i, s := range statuses {
		todos[i] = map[string]string{"content": fmt.Sprintf("todo %d", i+1), "status": s}
	}
	data, err := json.MarshalIndent(map[string]any{"todos": todos}, "", "  ")
	if err != nil {
		e.t.Fatal(err)
	}
	e.CreateProjectFile(".omd/todos.json", string(data))
}

// WriteModeState writes a raw state record for mode, as an older or foreign
// writer would have left it.
func (e *TestEnv) WriteModeState(mode, sessionID string, active bool, startedAt time.Time, prompt string) {
	e.t.Helper()

	state := map[string]any{
		"active":              active,
		"started_at":          startedAt.Format(time.RFC3339Nano),
		"original_prompt":     prompt,
		"reinforcement_count": 0,
		"last_checked_at":     startedAt.Format(time.RFC3339Nano),
	}
	if sessionID != "" {
		state["session_id"] = sessionID
	} else {
		state["session_id"] = nil
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		e.t.Fatal(err)
	}
	e.CreateFile(e.ModeStatePath(mode, sessionID), string(data))
}

// HookRequest builds a hook request body for the test project.
func (e *TestEnv) HookRequest(t *testing.T, fields map[string]any) string {
	t.Helper()

	body := map[string]any{"cwd": e.ProjectDir}
	for k, v := range fields {
		body[k] = v
	}
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
