// Package modes detects persistent execution modes in user prompts, keeps
// their activation state on disk and renders the reminders that keep a
// session working while a mode is live.
//
// A prompt flows through Detect, then Resolve, then StateStore.Activate (or
// StateStore.Cancel). On every turn boundary StateStore.Continue reloads the
// states, reinforces the live ones and renders the continuation text.
package modes

// Mode names a detected keyword family. Only the persistent modes have
// state on disk; plan and research are advisory.
type Mode string

const (
	Cancel    Mode = "cancel"
	Ralph     Mode = "ralph"
	Autopilot Mode = "autopilot"
	Ultrawork Mode = "ultrawork"
	Ecomode   Mode = "ecomode"
	Pipeline  Mode = "pipeline"
	Plan      Mode = "plan"
	Research  Mode = "research"
)

// Priority is the resolver's sort order.
var Priority = []Mode{Cancel, Ralph, Autopilot, Ultrawork, Ecomode, Pipeline, Plan, Research}

// Persistent lists the modes that keep state between turns, in reminder
// order.
var Persistent = []Mode{Ralph, Autopilot, Ultrawork, Ecomode, Pipeline}

// activatable modes get a fresh state record when detected. Pipeline is
// cleared on cancel but never activated by a keyword.
var activatable = map[Mode]bool{
	Ralph:     true,
	Autopilot: true,
	Ultrawork: true,
	Ecomode:   true,
}

// Activatable reports whether detecting m writes a state record.
func (m Mode) Activatable() bool {
	return activatable[m]
}

// Persistent reports whether m keeps state between turns.
func (m Mode) Persistent() bool {
	for _, p := range Persistent {
		if p == m {
			return true
		}
	}
	return false
}

// Valid reports whether m is a known mode name.
func (m Mode) Valid() bool {
	return priorityOf(m) < len(Priority)
}

func priorityOf(m Mode) int {
	for i, p := range Priority {
		if p == m {
			return i
		}
	}
	return len(Priority)
}

// Names converts modes to plain strings.
func Names(modes []Mode) []string {
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = string(m)
	}
	return out
}
