package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/hooks"
)

func hookCmd(o *rootOptions) *cobra.Command {
	names := make([]string, 0, 5)
	for _, e := range hooks.Events() {
		names = append(names, string(e))
	}

	return &cobra.Command{
		Use:       "hook <event>",
		Short:     "Handle a hook request from stdin (" + strings.Join(names, ", ") + ")",
		Long:      `Reads one hook request from stdin and writes the response to stdout. Same handlers as omd-hook.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := hooks.ParseEvent(args[0])
			if err != nil {
				return err
			}
			home, err := o.homeDir()
			if err != nil {
				return err
			}
			return hooks.NewDispatcher(home).Run(cmd.Context(), event, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
