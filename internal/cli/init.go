package cli

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/assets"
	"github.com/qazz92/oh-my-droid/internal/config"
)

func initCmd(o *rootOptions) *cobra.Command {
	var global, force, withAgents bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize omd in the current project or globally",
		Long: `Initialize omd directories and configuration.

Without flags: creates .omd/ in the project with a project config.
With --global: creates ~/.omd/ with the global config, task, state and log
directories. --agents also copies the built-in droid definitions into
~/.omd/agents so they can be edited.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := o.homeDir()
			if err != nil {
				return err
			}

			var created []string
			if global {
				created, err = initGlobal(home, force, withAgents)
			} else {
				var dir string
				if dir, err = o.projectDir(); err == nil {
					created, err = initProject(dir, force)
				}
			}
			if err != nil {
				return err
			}

			return o.emit(cmd, map[string][]string{"created": created}, func(w io.Writer) {
				for _, p := range created {
					fmt.Fprintf(w, "  Created %s\n", p)
				}
				fmt.Fprintln(w, "omd initialized")
			})
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "Initialize ~/.omd instead of the project")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	cmd.Flags().BoolVar(&withAgents, "agents", false, "Copy built-in agents into ~/.omd/agents (with --global)")
	return cmd
}

func initGlobal(home string, force, withAgents bool) ([]string, error) {
	omdHome := filepath.Join(home, ".omd")
	cfgPath := config.GlobalConfigPath(home)

	if exists(cfgPath) && !force {
		return nil, fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	dirs := []string{
		omdHome,
		filepath.Join(omdHome, "agents"),
		filepath.Join(omdHome, "background-tasks"),
		filepath.Join(omdHome, "state"),
		filepath.Join(omdHome, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := config.WriteDefault(cfgPath); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	created := append(dirs, cfgPath)

	if withAgents {
		dst := filepath.Join(omdHome, "agents")
		if err := installEmbeddedDir(assets.Agents, "agents", dst); err != nil {
			return nil, fmt.Errorf("failed to install agents: %w", err)
		}
	}

	return created, nil
}

func initProject(dir string, force bool) ([]string, error) {
	stateDir := filepath.Join(dir, config.DefaultConfig().StateDir)
	cfgPath := config.ProjectConfigPath(dir, config.DefaultConfig().StateDir)

	if exists(cfgPath) && !force {
		return nil, fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	dirs := []string{
		stateDir,
		filepath.Join(stateDir, "state"),
		filepath.Join(stateDir, "agents"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", d, err)
		}
	}

	if err := config.WriteProjectDefault(cfgPath); err != nil {
		return nil, fmt.Errorf("failed to write config: %w", err)
	}
	return append(dirs, cfgPath), nil
}

// writeConfigFile writes only the config file, creating its directory.
func writeConfigFile(o *rootOptions, global, force bool) (string, error) {
	var path string
	if global {
		home, err := o.homeDir()
		if err != nil {
			return "", err
		}
		path = config.GlobalConfigPath(home)
	} else {
		dir, err := o.projectDir()
		if err != nil {
			return "", err
		}
		path = config.ProjectConfigPath(dir, config.DefaultConfig().StateDir)
	}

	if exists(path) && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	write := config.WriteProjectDefault
	if global {
		write = config.WriteDefault
	}
	if err := write(path); err != nil {
		return "", fmt.Errorf("failed to write config: %w", err)
	}
	return path, nil
}

func installEmbeddedDir(fsys embed.FS, srcDir, dstDir string) error {
	return fs.WalkDir(fsys, srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		content, err := fsys.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		relPath, _ := filepath.Rel(srcDir, path)
		dstPath := filepath.Join(dstDir, relPath)

		if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
			return err
		}

		if err := os.WriteFile(dstPath, content, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", dstPath, err)
		}

		return nil
	})
}
