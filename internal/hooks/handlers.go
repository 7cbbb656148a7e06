package hooks

import (
	"context"
	"errors"
	"log"

	"github.com/qazz92/oh-my-droid/internal/briefing"
	"github.com/qazz92/oh-my-droid/internal/workspace"
	"github.com/qazz92/oh-my-droid/pkg/types"
)

// handleUserPromptSubmit detects mode keywords and returns the skill
// invocation for them.
func handleUserPromptSubmit(_ context.Context, ws *workspace.Workspace, in types.HookInput) (string, error) {
	if in.Prompt == "" {
		return "", nil
	}
	out, err := ws.Modes().HandlePrompt(in.Prompt, in.SessionID)
	if err != nil {
		return "", err
	}
	return out.Context, nil
}

// handleStop reinforces live persistent modes at a turn boundary.
func handleStop(_ context.Context, ws *workspace.Workspace, in types.HookInput) (string, error) {
	c, err := ws.Modes().Continue(in.SessionID)
	if err != nil || c == nil {
		return "", err
	}
	return c.Text, nil
}

// handleSessionStart prunes stale background tasks and restores live mode
// state and pending todos into the new session.
func handleSessionStart(_ context.Context, ws *workspace.Workspace, in types.HookInput) (string, error) {
	if mgr, err := ws.Tasks(nil); err != nil {
		log.Printf("warning: skipping task pruning: %v", err)
	} else if res := mgr.PruneStale(); len(res.Removed) > 0 {
		log.Printf("pruned %d stale task(s)", len(res.Removed))
	}

	b := briefing.Generate(ws.Modes(), ws.StateDir(), in.SessionID)
	if b.Empty() {
		return "", nil
	}
	return b.Render(), nil
}

// handleSubagentStop completes the task running under the finished session,
// taking its result from the transcript.
func handleSubagentStop(_ context.Context, ws *workspace.Workspace, in types.HookInput) (string, error) {
	if in.SessionID == "" {
		return "", errors.New("no session_id in hook input")
	}

	var result string
	if in.TranscriptPath != "" {
		text, err := LastAssistantText(in.TranscriptPath)
		if err != nil {
			log.Printf("warning: %v", err)
		}
		result = text
	}

	mgr, err := ws.Tasks(nil)
	if err != nil {
		return "", err
	}
	if _, err := mgr.CompleteBySession(in.SessionID, result); err != nil {
		return "", err
	}
	return "", nil
}

// handlePostToolUse records a heartbeat for the task running under the
// session, if any.
func handlePostToolUse(_ context.Context, ws *workspace.Workspace, in types.HookInput) (string, error) {
	if in.SessionID == "" || in.ToolName == "" {
		return "", nil
	}
	mgr, err := ws.Tasks(nil)
	if err != nil {
		return "", err
	}
	_, err = mgr.RecordToolUse(in.SessionID, in.ToolName)
	return "", err
}
