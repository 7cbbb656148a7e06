package config

import "time"

// Config represents the full omd configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// Project-relative directory holding mode state and todos
	StateDir string `yaml:"state_dir" mapstructure:"state_dir"`

	// User-global directory (~/.omd); global mode state lives in <home_dir>/state
	HomeDir string `yaml:"home_dir" mapstructure:"home_dir"`

	// Background task configuration
	Tasks TasksConfig `yaml:"tasks" mapstructure:"tasks"`

	// Persistent mode configuration
	Modes ModesConfig `yaml:"modes" mapstructure:"modes"`

	// Executor configuration
	Executor ExecutorConfig `yaml:"executor" mapstructure:"executor"`

	// Lifecycle journal configuration
	Journal JournalConfig `yaml:"journal" mapstructure:"journal"`
}

// TasksConfig configures the background task manager
type TasksConfig struct {
	Dir            string        `yaml:"dir" mapstructure:"dir"`
	TTL            time.Duration `yaml:"ttl" mapstructure:"ttl"`
	StaleThreshold time.Duration `yaml:"stale_threshold" mapstructure:"stale_threshold"`
	MessageLimit   int           `yaml:"message_limit" mapstructure:"message_limit"`
	CleanupAfter   time.Duration `yaml:"cleanup_after" mapstructure:"cleanup_after"`
}

// ModesConfig configures persistent mode handling
type ModesConfig struct {
	StaleAfter time.Duration `yaml:"stale_after" mapstructure:"stale_after"`
}

// ExecutorConfig configures how agents are spawned
type ExecutorConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

// JournalConfig configures the lifecycle journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}
