package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load loads and merges configuration from global and project sources.
// Paths starting with "~" are expanded against home.
func Load(home, projectDir string) (*Config, error) {
	cfg := DefaultConfig()

	// Load global config first
	if home != "" {
		if err := loadFile(GlobalConfigPath(home), cfg); err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	// Load project config (overrides global)
	if projectDir != "" {
		if err := loadFile(ProjectConfigPath(projectDir, cfg.StateDir), cfg); err != nil && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	cfg.expand(home)
	return cfg, nil
}

// LoadDefault loads configuration for the current user and working directory.
// It falls back to defaults when either cannot be determined.
func LoadDefault() (*Config, error) {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return Load(home, cwd)
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func (c *Config) expand(home string) {
	c.HomeDir = expandHome(c.HomeDir, home)
	c.Tasks.Dir = expandHome(c.Tasks.Dir, home)
	c.Journal.Path = expandHome(c.Journal.Path, home)
}

func expandHome(path, home string) string {
	if home == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ProjectStateDir returns the state directory for a project
func (c *Config) ProjectStateDir(projectDir string) string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(projectDir, c.StateDir)
}

// GlobalStateDir returns the user-global mode state directory
func (c *Config) GlobalStateDir() string {
	return filepath.Join(c.HomeDir, "state")
}

// LogDir returns the directory hook processes log into
func (c *Config) LogDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath(home string) string {
	return filepath.Join(home, ".omd", "config.yaml")
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath(projectDir, stateDir string) string {
	if stateDir == "" {
		stateDir = ".omd"
	}
	return filepath.Join(projectDir, stateDir, "config.yaml")
}
