package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/agents"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

func agentCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "List the droids tasks can be launched with",
	}
	cmd.AddCommand(agentListCmd(o))
	cmd.AddCommand(agentShowCmd(o))
	return cmd
}

func agentListCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				catalog, err := ws.Agents()
				if err != nil {
					return err
				}
				list := catalog.List()

				if o.json {
					return printJSON(cmd.OutOrStdout(), list)
				}

				w := cmd.OutOrStdout()
				tw := table.NewWriter()
				tw.SetOutputMirror(w)
				tw.AppendHeader(table.Row{"Name", "Autonomy", "Source", "Description"})
				for _, a := range list {
					tw.AppendRow(table.Row{a.Name, a.Autonomy, a.Source, a.Description})
				}
				tw.Render()
				fmt.Fprintln(w)
				fmt.Fprintln(w, "Use 'omd agent show <name>' for details.")
				return nil
			})
		},
	}
}

func agentShowCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show agent details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				catalog, err := ws.Agents()
				if err != nil {
					return err
				}
				agent, ok := catalog.Get(args[0])
				if !ok {
					return fmt.Errorf("agent not found: %s", args[0])
				}
				return o.emit(cmd, agent, func(w io.Writer) {
					printAgent(w, agent)
				})
			})
		},
	}
}

func printAgent(w io.Writer, agent *agents.Agent) {
	fmt.Fprintf(w, "Agent: %s\n", agent.Name)
	fmt.Fprintf(w, "Description: %s\n", agent.Description)
	if agent.Autonomy != "" {
		fmt.Fprintf(w, "Autonomy: %s\n", agent.Autonomy)
	}
	fmt.Fprintln(w)

	if len(agent.Tools) > 0 {
		fmt.Fprintln(w, "Tools:")
		for _, tool := range agent.Tools {
			fmt.Fprintf(w, "  - %s\n", tool)
		}
		fmt.Fprintln(w)
	}

	if agent.Path != "" {
		fmt.Fprintf(w, "Location: %s\n", agent.Path)
	} else {
		fmt.Fprintln(w, "Location: built in")
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prompt:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintln(w, agent.Prompt)
}
