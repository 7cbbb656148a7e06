// Package workspace opens what one omd invocation needs for a project:
// merged configuration plus the journal, task manager, mode state store and
// agent catalog built from it.
package workspace

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/qazz92/oh-my-droid/internal/agents"
	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/journal"
	"github.com/qazz92/oh-my-droid/internal/modes"
	"github.com/qazz92/oh-my-droid/internal/tasks"
)

// Workspace is the per-invocation view of a project.
type Workspace struct {
	Config     *config.Config
	ProjectDir string

	journal *journal.Journal
	manager *tasks.Manager
	states  *modes.StateStore
}

// Open loads configuration for projectDir and opens the journal when it is
// enabled. A journal that cannot be opened is logged and left out.
func Open(home, projectDir string) (*Workspace, error) {
	cfg, err := config.Load(home, projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ws := &Workspace{Config: cfg, ProjectDir: projectDir}
	if cfg.Journal.Enabled && cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Printf("warning: journal disabled: %v", err)
		} else {
			ws.journal = j
		}
	}
	return ws, nil
}

// Close releases the journal.
func (w *Workspace) Close() error {
	if w.journal == nil {
		return nil
	}
	return w.journal.Close()
}

// Journal returns the open journal, or nil when it is disabled.
func (w *Workspace) Journal() *journal.Journal {
	return w.journal
}

// Recorder returns the journal as a lifecycle recorder. It is a nil
// interface when the journal is disabled.
func (w *Workspace) Recorder() tasks.Recorder {
	if w.journal == nil {
		return nil
	}
	return w.journal
}

// StateDir returns the project state directory, normally <project>/.omd.
func (w *Workspace) StateDir() string {
	return w.Config.ProjectStateDir(w.ProjectDir)
}

// Tasks returns the task manager, loading the registry on first use. exec
// may be nil when nothing will be launched.
func (w *Workspace) Tasks(exec tasks.Executor) (*tasks.Manager, error) {
	if w.manager != nil {
		return w.manager, nil
	}
	m, err := tasks.Open(w.Config.Tasks, exec, w.Recorder())
	if err != nil {
		return nil, err
	}
	w.manager = m
	return m, nil
}

// Modes returns the mode state store for the project.
func (w *Workspace) Modes() *modes.StateStore {
	if w.states == nil {
		w.states = modes.ForProject(w.Config, w.ProjectDir, w.Recorder())
	}
	return w.states
}

// AgentDirs returns the override directories for agent definitions, user
// first so project files win.
func (w *Workspace) AgentDirs() []string {
	return []string{
		filepath.Join(w.Config.HomeDir, "agents"),
		filepath.Join(w.StateDir(), "agents"),
	}
}

// Agents loads the agent catalog.
func (w *Workspace) Agents() (*agents.Catalog, error) {
	return agents.Load(w.AgentDirs()...)
}
