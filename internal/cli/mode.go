package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/modes"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

var (
	modeNameStyle  = lipgloss.NewStyle().Bold(true).Width(10)
	modeLiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	modeStaleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	modeOffStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	modeCountStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	modeWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func modeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Inspect and control persistent modes",
	}
	cmd.AddCommand(modeStatusCmd(o))
	cmd.AddCommand(modeCancelCmd(o))
	cmd.AddCommand(modeDetectCmd(o))
	return cmd
}

func modeStatusCmd(o *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every persistent mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				statuses := ws.Modes().Status(sessionID)
				return o.emit(cmd, statuses, func(w io.Writer) {
					for _, st := range statuses {
						fmt.Fprintln(w, renderModeStatus(st))
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: project-global state only)")
	return cmd
}

func renderModeStatus(st modes.ModeStatus) string {
	name := modeNameStyle.Render(string(st.Mode))
	switch {
	case !st.Found:
		return name + modeOffStyle.Render("off")
	case st.Live:
		line := name + modeLiveStyle.Render("live") +
			modeCountStyle.Render(fmt.Sprintf("  #%d", st.State.ReinforcementCount)) +
			modeOffStyle.Render(fmt.Sprintf("  %s since %s", st.Scope, st.State.StartedAt))
		if st.State.OriginalPrompt != "" {
			line += "\n" + strings.Repeat(" ", 10) + modeOffStyle.Render(summarize(st.State.OriginalPrompt, 70))
		}
		return line
	case st.State.Active:
		return name + modeStaleStyle.Render("stale") +
			modeOffStyle.Render(fmt.Sprintf("  last checked %s", st.State.LastCheckedAt))
	default:
		return name + modeOffStyle.Render("inactive")
	}
}

func modeCancelCmd(o *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Clear every persistent mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				n, err := ws.Modes().Cancel(sessionID)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), modeWarnStyle.Render("some state could not be removed"))
					return err
				}
				return o.emit(cmd, map[string]int{"cleared": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Cleared %d mode state file(s)\n", n)
				})
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Also clear this session's state")
	return cmd
}

// detection is the output of "mode detect".
type detection struct {
	Detected []modes.Mode `json:"detected"`
	Resolved []modes.Mode `json:"resolved"`
	Context  string       `json:"context,omitempty"`
}

func modeDetectCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <prompt...>",
		Short: "Show which modes a prompt would trigger, without activating them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			d := detection{
				Detected: modes.Detect(prompt),
				Resolved: []modes.Mode{},
			}
			if d.Detected == nil {
				d.Detected = []modes.Mode{}
			}
			if len(d.Detected) > 0 {
				d.Resolved = modes.Resolve(d.Detected)
				text, err := modes.SkillInvocation(d.Resolved, prompt)
				if err != nil {
					return err
				}
				d.Context = text
			}

			return o.emit(cmd, d, func(w io.Writer) {
				if len(d.Detected) == 0 {
					fmt.Fprintln(w, "No mode keywords detected")
					return
				}
				fmt.Fprintf(w, "Detected: %s\n", strings.Join(modes.Names(d.Detected), ", "))
				fmt.Fprintf(w, "Resolved: %s\n", strings.Join(modes.Names(d.Resolved), ", "))
				if o.verbose {
					fmt.Fprintf(w, "\n%s\n", d.Context)
				}
			})
		},
	}
}
