package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/launch"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

// check is one doctor result.
type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func doctorCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check omd installation health",
		Long:  `Runs diagnostic checks on the omd installation and reports pass/fail for each component.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := o.homeDir()
			if err != nil {
				return err
			}
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				checks := runChecks(home, ws)
				return o.emit(cmd, checks, func(w io.Writer) {
					printChecks(w, checks)
				})
			})
		},
	}
}

func runChecks(home string, ws *workspace.Workspace) []check {
	var checks []check
	add := func(name string, ok bool, detail string) {
		c := check{Name: name, OK: ok}
		if !ok {
			c.Detail = detail
		}
		checks = append(checks, c)
	}

	omdHome := ws.Config.HomeDir
	add("~/.omd/ directory", exists(omdHome), "run: omd init --global")
	add("~/.omd/config.yaml", exists(config.GlobalConfigPath(home)), "run: omd init --global")
	add("log directory", exists(ws.Config.LogDir()), "run: omd init --global")

	if ws.Config.Journal.Enabled {
		add("journal database", ws.Journal() != nil, fmt.Sprintf("cannot open %s", ws.Config.Journal.Path))
	}

	mgr, err := ws.Tasks(nil)
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	add("task records readable", err == nil, detail)
	if err == nil {
		add("task directory", exists(mgr.Registry().Dir()), "will be created on first launch")
	}

	if ws.Config.Executor.Enabled {
		sp := launch.NewSpawner(ws.Config.Executor.Command, ws.Config.Executor.Args...)
		err := sp.CheckInstalled()
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		add(ws.Config.Executor.Command+" binary", err == nil, detail)
	}

	catalog, err := ws.Agents()
	detail = ""
	if err != nil {
		detail = err.Error()
	}
	add("agent definitions", err == nil, detail)
	if err == nil {
		add("agents available", len(catalog.List()) > 0, "no agents found")
	}

	add(".omd/ in project", exists(ws.StateDir()), "run: omd init")
	return checks
}

func printChecks(w io.Writer, checks []check) {
	passed, failed := 0, 0
	for _, c := range checks {
		if c.OK {
			fmt.Fprintf(w, "  ✓ %s\n", c.Name)
			passed++
		} else {
			fmt.Fprintf(w, "  ✗ %s: %s\n", c.Name, c.Detail)
			failed++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Results: %d passed, %d failed\n", passed, failed)
}
