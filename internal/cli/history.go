package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/journal"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

func historyCmd(o *rootOptions) *cobra.Command {
	var (
		f     journal.Filter
		since time.Duration
		trim  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the task and mode lifecycle journal",
		Long: `List journal events, oldest first. --kind matches a prefix, so
--kind task. shows every task event. --trim deletes events older than the
given age instead of listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				j := ws.Journal()
				if j == nil {
					return fmt.Errorf("journal is disabled (journal.enabled in config)")
				}

				if trim > 0 {
					n, err := j.Trim(time.Now().Add(-trim))
					if err != nil {
						return err
					}
					return o.emit(cmd, map[string]int64{"trimmed": n}, func(w io.Writer) {
						fmt.Fprintf(w, "Trimmed %d event(s)\n", n)
					})
				}

				if since > 0 {
					f.Since = time.Now().Add(-since)
				}
				events, err := j.List(f)
				if err != nil {
					return err
				}
				if events == nil {
					events = []journal.Event{}
				}

				return o.emit(cmd, events, func(w io.Writer) {
					if len(events) == 0 {
						fmt.Fprintln(w, "No events recorded.")
						return
					}
					printEventTable(w, events)
				})
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.SessionID, "session", "", "Only events for this session")
	flags.StringVar(&f.Subject, "subject", "", "Only events for this task id or mode")
	flags.StringVar(&f.KindPrefix, "kind", "", "Only events whose kind starts with this")
	flags.IntVarP(&f.Limit, "limit", "n", 50, "Number of events to show (newest kept)")
	flags.DurationVar(&since, "since", 0, "Only events newer than this age, e.g. 2h")
	flags.DurationVar(&trim, "trim", 0, "Delete events older than this age")
	return cmd
}

func printEventTable(w io.Writer, events []journal.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Time", "Kind", "Subject", "Session", "Detail"})
	for _, e := range events {
		tw.AppendRow(table.Row{formatTime(e.At), e.Kind, e.Subject, e.SessionID, summarize(e.Detail, 40)})
	}
	tw.Render()
}
