package config

import (
	"os"
	"time"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  "1",
		StateDir: ".omd",
		HomeDir:  "~/.omd",
		Tasks: TasksConfig{
			Dir:            "~/.omd/background-tasks",
			TTL:            30 * time.Minute,
			StaleThreshold: 5 * time.Minute,
			MessageLimit:   500,
			CleanupAfter:   24 * time.Hour,
		},
		Modes: ModesConfig{
			StaleAfter: 2 * time.Hour,
		},
		Executor: ExecutorConfig{
			Enabled: true,
			Command: "droid",
			Args:    []string{"task"},
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "~/.omd/journal.db",
		},
	}
}

// WriteDefault writes the default global configuration to a file
func WriteDefault(path string) error {
	content := `# oh-my-droid configuration
version: "1"

# Project-relative state directory (mode state, todos)
state_dir: .omd

# User-global directory
home_dir: ~/.omd

# Background tasks
tasks:
  dir: ~/.omd/background-tasks
  ttl: 30m              # absolute lifetime of a queued/running task
  stale_threshold: 5m   # running tasks are pruned after 2x this without progress
  message_limit: 500
  cleanup_after: 24h    # finished task records older than this are deleted by 'omd task cleanup'

# Persistent modes (ralph, autopilot, ultrawork, ecomode, pipeline)
modes:
  stale_after: 2h

# Agent executor
executor:
  enabled: true
  command: droid
  args: [task]

# Lifecycle journal (SQLite)
journal:
  enabled: true
  path: ~/.omd/journal.db
`
	return os.WriteFile(path, []byte(content), 0644)
}

// WriteProjectDefault writes the default project configuration to a file
func WriteProjectDefault(path string) error {
	content := `# oh-my-droid project configuration
version: "1"

# Override global settings as needed
# tasks:
#   ttl: 1h
# modes:
#   stale_after: 4h
# executor:
#   enabled: false
`
	return os.WriteFile(path, []byte(content), 0644)
}
