package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/workspace"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	json    bool
	dir     string
	home    string
	verbose bool
}

// NewRootCmd builds the omd command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd, _ := newRootCmd(version)
	return cmd
}

func newRootCmd(version string) (*cobra.Command, *rootOptions) {
	o := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "omd",
		Short: "oh-my-droid - background tasks and persistent modes for droid",
		Long: `omd tracks background droid tasks and the persistent modes (ralph,
autopilot, ultrawork, ecomode, pipeline) that keep a session working.

Hook processes call 'omd hook <event>'; everything else is for operators.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&o.json, "json", false, "Output JSON")
	flags.StringVarP(&o.dir, "dir", "C", "", "Project directory (default: current directory)")
	flags.StringVar(&o.home, "home", "", "Home directory used to resolve ~ (default: $HOME)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(initCmd(o))
	rootCmd.AddCommand(taskCmd(o))
	rootCmd.AddCommand(modeCmd(o))
	rootCmd.AddCommand(configCmd(o))
	rootCmd.AddCommand(historyCmd(o))
	rootCmd.AddCommand(agentCmd(o))
	rootCmd.AddCommand(hookCmd(o))
	rootCmd.AddCommand(doctorCmd(o))

	return rootCmd, o
}

// Execute runs the root command
func Execute(version string) error {
	rootCmd, o := newRootCmd(version)
	if err := rootCmd.Execute(); err != nil {
		if o.json {
			_ = printJSON(os.Stdout, map[string]string{"error": err.Error()})
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

func (o *rootOptions) homeDir() (string, error) {
	if o.home != "" {
		return o.home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return home, nil
}

func (o *rootOptions) projectDir() (string, error) {
	if o.dir != "" {
		return o.dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return cwd, nil
}

// withWorkspace opens the workspace for the selected project, runs fn and
// closes it.
func (o *rootOptions) withWorkspace(fn func(ws *workspace.Workspace) error) error {
	home, err := o.homeDir()
	if err != nil {
		return err
	}
	dir, err := o.projectDir()
	if err != nil {
		return err
	}

	ws, err := workspace.Open(home, dir)
	if err != nil {
		return err
	}
	defer ws.Close()
	return fn(ws)
}

// emit prints v as JSON in --json mode, otherwise calls text.
func (o *rootOptions) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if o.json {
		return printJSON(cmd.OutOrStdout(), v)
	}
	text(cmd.OutOrStdout())
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
