package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

func configCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage omd configuration",
	}
	cmd.AddCommand(configShowCmd(o))
	cmd.AddCommand(configPathCmd(o))
	cmd.AddCommand(configInitCmd(o))
	return cmd
}

func configShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show merged configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				if o.json {
					return printJSON(cmd.OutOrStdout(), ws.Config)
				}
				data, err := yaml.Marshal(ws.Config)
				if err != nil {
					return fmt.Errorf("failed to marshal config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "# Merged configuration (global + project)")
				fmt.Fprint(cmd.OutOrStdout(), string(data))
				return nil
			})
		},
	}
}

// configPaths lists the files Load reads, in merge order.
type configPaths struct {
	Global  string `json:"global"`
	Project string `json:"project"`
}

func configPathCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := o.homeDir()
			if err != nil {
				return err
			}
			dir, err := o.projectDir()
			if err != nil {
				return err
			}
			p := configPaths{
				Global:  config.GlobalConfigPath(home),
				Project: config.ProjectConfigPath(dir, config.DefaultConfig().StateDir),
			}
			return o.emit(cmd, p, func(w io.Writer) {
				fmt.Fprintf(w, "Global:  %s\n", p.Global)
				fmt.Fprintf(w, "Project: %s\n", p.Project)
			})
		},
	}
}

func configInitCmd(o *rootOptions) *cobra.Command {
	var global, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := writeConfigFile(o, global, force)
			if err != nil {
				return err
			}
			return o.emit(cmd, map[string]string{"path": path}, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s\n", path)
			})
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "Write the global config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
