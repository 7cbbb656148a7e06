// Package hooks turns host hook invocations into task and mode operations.
//
// Each hook process reads one JSON request from stdin, runs the handler for
// its event and writes one JSON response to stdout. Handlers never fail the
// host: every error and panic collapses into the silent default response.
package hooks

import (
	"fmt"
	"sort"
)

// Event identifies which hook fired.
type Event string

const (
	EventUserPromptSubmit Event = "user-prompt-submit"
	EventStop             Event = "stop"
	EventSessionStart     Event = "session-start"
	EventSubagentStop     Event = "subagent-stop"
	EventPostToolUse      Event = "post-tool-use"
)

// hookEventNames maps events to the names the host expects in
// hookSpecificOutput.
var hookEventNames = map[Event]string{
	EventUserPromptSubmit: "UserPromptSubmit",
	EventStop:             "Stop",
	EventSessionStart:     "SessionStart",
	EventSubagentStop:     "SubagentStop",
	EventPostToolUse:      "PostToolUse",
}

// Events lists every known event, sorted.
func Events() []Event {
	out := make([]Event, 0, len(hookEventNames))
	for e := range hookEventNames {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// HookEventName returns the host's name for e.
func (e Event) HookEventName() string {
	return hookEventNames[e]
}

// ParseEvent accepts either the CLI spelling (session-start) or the host
// spelling (SessionStart).
func ParseEvent(s string) (Event, error) {
	if _, ok := hookEventNames[Event(s)]; ok {
		return Event(s), nil
	}
	for e, name := range hookEventNames {
		if name == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown hook event %q", s)
}
