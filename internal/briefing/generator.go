package briefing

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/qazz92/oh-my-droid/internal/assets"
	"github.com/qazz92/oh-my-droid/internal/modes"
)

// Notice kinds, in render order.
const (
	NoticeUltrawork = "ultrawork"
	NoticeRalph     = "ralph"
	NoticeAutopilot = "autopilot"
	NoticeTodos     = "todos"
)

const unknownStart = "unknown"

// Notice is one rendered restore block.
type Notice struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Briefing holds the restore notices for a starting session.
type Briefing struct {
	Notices      []Notice `json:"notices"`
	PendingTodos int      `json:"pending_todos"`
}

var restoredModes = []struct {
	mode     modes.Mode
	kind     string
	template string
}{
	{modes.Ultrawork, NoticeUltrawork, "restore-ultrawork"},
	{modes.Ralph, NoticeRalph, "restore-ralph"},
	{modes.Autopilot, NoticeAutopilot, "restore-autopilot"},
}

// Generate checks mode state and the todos file under stateDir. Failures to
// render a notice are logged and the notice is dropped.
func Generate(states *modes.StateStore, stateDir, sessionID string) *Briefing {
	b := &Briefing{}

	for _, r := range restoredModes {
		rec, ok := states.LoadScoped(r.mode, sessionID)
		if !ok || !states.IsLive(rec) {
			continue
		}

		prompt := rec.State.OriginalPrompt
		if prompt == "" {
			prompt = "Task in progress"
		}
		startedAt := rec.State.StartedAt
		if startedAt == "" {
			startedAt = unknownStart
		}

		b.add(r.kind, r.template, map[string]any{
			"Prompt":    prompt,
			"StartedAt": startedAt,
		})
	}

	pending, err := CountIncompleteTodos(TodosPath(stateDir))
	if err != nil {
		log.Printf("warning: failed to read todos: %v", err)
	}
	b.PendingTodos = pending
	if pending > 0 {
		b.add(NoticeTodos, "restore-todos", map[string]any{"Count": pending})
	}

	return b
}

func (b *Briefing) add(kind, template string, data map[string]any) {
	text, err := assets.Render(template, data)
	if err != nil {
		log.Printf("warning: failed to render %s notice: %v", kind, err)
		return
	}
	b.Notices = append(b.Notices, Notice{Kind: kind, Text: text})
}

// Empty reports whether there is nothing to restore.
func (b *Briefing) Empty() bool {
	return len(b.Notices) == 0
}

// Render joins the notices with newlines.
func (b *Briefing) Render() string {
	texts := make([]string, len(b.Notices))
	for i, n := range b.Notices {
		texts[i] = n.Text
	}
	return strings.Join(texts, "\n")
}

// TodosPath returns the todos file inside a project state directory.
func TodosPath(stateDir string) string {
	return filepath.Join(stateDir, "todos.json")
}
