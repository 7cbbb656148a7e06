package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"runtime/debug"

	"github.com/qazz92/oh-my-droid/internal/workspace"
	"github.com/qazz92/oh-my-droid/pkg/types"
)

// handlerFunc returns the context to inject, or "" to stay silent.
type handlerFunc func(ctx context.Context, ws *workspace.Workspace, in types.HookInput) (string, error)

var handlers = map[Event]handlerFunc{
	EventUserPromptSubmit: handleUserPromptSubmit,
	EventStop:             handleStop,
	EventSessionStart:     handleSessionStart,
	EventSubagentStop:     handleSubagentStop,
	EventPostToolUse:      handlePostToolUse,
}

// Dispatcher routes hook requests to their handlers.
type Dispatcher struct {
	home string
}

// NewDispatcher creates a Dispatcher. Configuration is resolved against home
// and the project directory named in each request.
func NewDispatcher(home string) *Dispatcher {
	return &Dispatcher{home: home}
}

// Handle runs the handler for event. It always returns a response; failures
// and panics are logged and yield the silent default.
func (d *Dispatcher) Handle(ctx context.Context, event Event, in types.HookInput) (out types.HookOutput) {
	out = types.Silent()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("warning: %s hook panicked: %v\n%s", event, r, debug.Stack())
			out = types.Silent()
		}
	}()

	handler, ok := handlers[event]
	if !ok {
		log.Printf("warning: no handler for hook event %q", event)
		return out
	}

	ws, err := workspace.Open(d.home, in.Directory)
	if err != nil {
		log.Printf("warning: %s hook: %v", event, err)
		return out
	}
	defer ws.Close()

	text, err := handler(ctx, ws, in)
	if err != nil {
		log.Printf("warning: %s hook: %v", event, err)
	}
	if text == "" {
		return out
	}
	return types.WithContext(event.HookEventName(), text)
}

// Run reads one request from r, handles it and writes the response to w.
// Only a failure to write the response is returned.
func (d *Dispatcher) Run(ctx context.Context, event Event, r io.Reader, w io.Writer) error {
	out := types.Silent()

	data, err := io.ReadAll(r)
	if err != nil {
		log.Printf("warning: failed to read hook input: %v", err)
	} else if in, err := ParseInput(data); err != nil {
		log.Printf("warning: %s hook: %v", event, err)
	} else {
		out = d.Handle(ctx, event, in)
	}

	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("failed to write hook output: %w", err)
	}
	return nil
}
