package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/qazz92/oh-my-droid/internal/launch"
	"github.com/qazz92/oh-my-droid/internal/tasks"
	"github.com/qazz92/oh-my-droid/internal/workspace"
)

func taskCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage background tasks",
	}
	cmd.AddCommand(taskLaunchCmd(o))
	cmd.AddCommand(taskCompleteCmd(o))
	cmd.AddCommand(taskStatusCmd(o))
	cmd.AddCommand(taskUpdateStatusCmd(o))
	cmd.AddCommand(taskProgressCmd(o))
	cmd.AddCommand(taskListCmd(o))
	cmd.AddCommand(taskPruneCmd(o))
	cmd.AddCommand(taskRemoveCmd(o))
	cmd.AddCommand(taskResumeCmd(o))
	cmd.AddCommand(taskCleanupCmd(o))
	return cmd
}

func taskLaunchCmd(o *rootOptions) *cobra.Command {
	var (
		req     tasks.LaunchRequest
		routing string
		noSpawn bool
	)

	cmd := &cobra.Command{
		Use:   "launch [prompt]",
		Short: "Launch a background task",
		Long: `Register a running task and start its agent with the configured executor.

The prompt is taken from --prompt or the positional argument. --routing accepts
the router's decision as JSON: {"agent":..,"autonomy":..,"confidence":..,"reason":..}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Prompt == "" && len(args) == 1 {
				req.Prompt = args[0]
			}
			if req.Prompt == "" {
				return fmt.Errorf("a prompt is required")
			}
			if req.Description == "" {
				req.Description = summarize(req.Prompt, 60)
			}
			if routing != "" {
				var decision tasks.RoutingDecision
				if err := json.Unmarshal([]byte(routing), &decision); err != nil {
					return fmt.Errorf("invalid --routing: %w", err)
				}
				req.Routing = &decision
			}

			return o.withWorkspace(func(ws *workspace.Workspace) error {
				if catalog, err := ws.Agents(); err != nil {
					log.Printf("warning: failed to load agents: %v", err)
				} else if !catalog.Has(req.Agent) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: unknown agent %q\n", req.Agent)
				}

				var exec tasks.Executor
				if !noSpawn {
					exec = launch.New(ws.Config.Executor)
				}
				mgr, err := ws.Tasks(exec)
				if err != nil {
					return err
				}

				task, err := mgr.Launch(cmd.Context(), req)
				if err != nil {
					return err
				}
				return o.emit(cmd, task, func(w io.Writer) {
					fmt.Fprintf(w, "Launched %s (session %s, agent %s)\n", task.ID, task.SessionID, task.Agent)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Agent, "agent", "a", "", "Agent to run (required)")
	f.StringVar(&req.Prompt, "prompt", "", "Task prompt")
	f.StringVarP(&req.Description, "description", "d", "", "Short description (default: start of the prompt)")
	f.StringVar(&req.ParentSessionID, "parent-session", "", "Session that launched the task")
	f.StringVar(&req.ParentModel, "parent-model", "", "Model of the launching session")
	f.StringVar(&req.ConcurrencyKey, "concurrency-key", "", "Concurrency key (default: agent)")
	f.StringVar(&routing, "routing", "", "Routing decision as JSON")
	f.BoolVar(&noSpawn, "no-spawn", false, "Register the task without starting an agent")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func taskCompleteCmd(o *rootOptions) *cobra.Command {
	var result, errMsg string

	cmd := &cobra.Command{
		Use:   "complete <task-id>",
		Short: "Mark a task completed, or failed with --error",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				status, err := mgr.Complete(args[0], result, errMsg)
				if err != nil {
					return err
				}
				return o.emit(cmd, map[string]any{"id": args[0], "status": status}, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s\n", args[0], status)
				})
			})
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "Task result")
	cmd.Flags().StringVar(&errMsg, "error", "", "Error message; marks the task failed")
	return cmd
}

func taskStatusCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				task, ok := mgr.Get(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", tasks.ErrNotFound, args[0])
				}
				return o.emit(cmd, task, func(w io.Writer) {
					printTask(w, task)
				})
			})
		},
	}
}

func taskUpdateStatusCmd(o *rootOptions) *cobra.Command {
	var result, errMsg string

	cmd := &cobra.Command{
		Use:   "update-status <task-id> <status>",
		Short: "Set a task's status (" + strings.Join(statusNames(), ", ") + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := tasks.ParseStatus(args[1])
			if err != nil {
				return err
			}

			var resultPtr, errPtr *string
			if cmd.Flags().Changed("result") {
				resultPtr = &result
			}
			if cmd.Flags().Changed("error") {
				errPtr = &errMsg
			}

			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				if err := mgr.UpdateStatus(args[0], status, resultPtr, errPtr); err != nil {
					return err
				}
				return o.emit(cmd, map[string]any{"id": args[0], "status": status}, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s\n", args[0], status)
				})
			})
		},
	}
	cmd.Flags().StringVar(&result, "result", "", "Task result")
	cmd.Flags().StringVar(&errMsg, "error", "", "Error message")
	return cmd
}

func taskProgressCmd(o *rootOptions) *cobra.Command {
	var (
		count   int
		tool    string
		message string
	)

	cmd := &cobra.Command{
		Use:   "progress <task-id>",
		Short: "Record a progress heartbeat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update tasks.ProgressUpdate
			if cmd.Flags().Changed("tool-calls") {
				update.ToolCallCount = &count
			}
			if cmd.Flags().Changed("tool") {
				update.LastTool = &tool
			}
			if cmd.Flags().Changed("message") {
				update.LastMessage = &message
			}

			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				if err := mgr.UpdateProgress(args[0], update); err != nil {
					return err
				}
				task, _ := mgr.Get(args[0])
				return o.emit(cmd, task.Progress, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %d tool calls\n", task.ID, task.Progress.ToolCallCount)
				})
			})
		},
	}
	cmd.Flags().IntVar(&count, "tool-calls", 0, "Total tool calls so far")
	cmd.Flags().StringVar(&tool, "tool", "", "Last tool used")
	cmd.Flags().StringVar(&message, "message", "", "Last message")
	return cmd
}

func taskListCmd(o *rootOptions) *cobra.Command {
	var (
		status string
		parent string
		prune  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List background tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				if prune {
					if res := mgr.PruneStale(); len(res.Removed) > 0 {
						fmt.Fprintf(cmd.ErrOrStderr(), "Pruned %d stale task(s)\n", len(res.Removed))
					}
				}

				var list []*tasks.Task
				switch {
				case status != "":
					s, err := tasks.ParseStatus(status)
					if err != nil {
						return err
					}
					list = mgr.ListByStatus(s)
					if parent != "" {
						list = filterParent(list, parent)
					}
				case parent != "":
					list = mgr.ListByParentSession(parent)
				default:
					list = mgr.List()
				}

				if o.json {
					if list == nil {
						list = []*tasks.Task{}
					}
					return printJSON(cmd.OutOrStdout(), list)
				}
				printTaskTable(cmd.OutOrStdout(), list)
				summary := mgr.Summary()
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d task(s):%s\n", summary.Total, formatCounts(summary.Counts))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status")
	cmd.Flags().StringVar(&parent, "parent-session", "", "Only tasks launched by this session")
	cmd.Flags().BoolVar(&prune, "prune", false, "Prune stale tasks first")
	return cmd
}

func taskPruneCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Fail tasks that timed out or went quiet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				res := mgr.PruneStale()
				if res.Removed == nil {
					res.Removed = []tasks.Pruned{}
				}
				return o.emit(cmd, res, func(w io.Writer) {
					for _, p := range res.Removed {
						fmt.Fprintf(w, "  %s  %s\n", p.ID, p.Reason)
					}
					fmt.Fprintf(w, "Pruned %d task(s)\n", len(res.Removed))
				})
			})
		},
	}
}

func taskRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <task-id>",
		Short: "Delete a task record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				removed, err := mgr.Remove(args[0])
				if err != nil {
					return err
				}
				return o.emit(cmd, map[string]any{"id": args[0], "removed": removed}, func(w io.Writer) {
					if removed {
						fmt.Fprintf(w, "Removed %s\n", args[0])
					} else {
						fmt.Fprintf(w, "No task %s\n", args[0])
					}
				})
			})
		},
	}
}

func taskResumeCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Show what is needed to pick up a task's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				rc, ok := mgr.ResumeContext(args[0])
				if !ok {
					return fmt.Errorf("%w: no task for session %s", tasks.ErrNotFound, args[0])
				}
				return o.emit(cmd, rc, func(w io.Writer) {
					fmt.Fprintf(w, "Session:      %s\n", rc.SessionID)
					fmt.Fprintf(w, "Status:       %s\n", rc.Status)
					fmt.Fprintf(w, "Tool calls:   %d\n", rc.ToolCallCount)
					if rc.LastToolUsed != "" {
						fmt.Fprintf(w, "Last tool:    %s\n", rc.LastToolUsed)
					}
					fmt.Fprintf(w, "Last active:  %s\n", formatTime(rc.LastActivityAt))
					fmt.Fprintf(w, "\nPrompt:\n%s\n", rc.PreviousPrompt)
					if rc.LastOutputSummary != "" {
						fmt.Fprintf(w, "\nLast output:\n%s\n", rc.LastOutputSummary)
					}
				})
			})
		},
	}
}

func taskCleanupCmd(o *rootOptions) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete finished task records older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withWorkspace(func(ws *workspace.Workspace) error {
				mgr, err := ws.Tasks(nil)
				if err != nil {
					return err
				}
				age := maxAge
				if !cmd.Flags().Changed("max-age") {
					age = ws.Config.Tasks.CleanupAfter
				}
				n, err := mgr.Cleanup(age)
				if err != nil {
					return err
				}
				return o.emit(cmd, map[string]int{"removed": n}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %d finished task(s) older than %s\n", n, age)
				})
			})
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "Age of finished records to delete (default: tasks.cleanup_after)")
	return cmd
}

func printTask(w io.Writer, t *tasks.Task) {
	fmt.Fprintf(w, "ID:           %s\n", t.ID)
	fmt.Fprintf(w, "Session:      %s\n", t.SessionID)
	if t.ParentSessionID != "" {
		fmt.Fprintf(w, "Parent:       %s\n", t.ParentSessionID)
	}
	fmt.Fprintf(w, "Agent:        %s\n", t.Agent)
	fmt.Fprintf(w, "Status:       %s\n", t.Status)
	fmt.Fprintf(w, "Description:  %s\n", t.Description)
	fmt.Fprintf(w, "Started:      %s\n", formatTime(t.StartedAt))
	if t.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:    %s\n", formatTime(*t.CompletedAt))
	}
	fmt.Fprintf(w, "Tool calls:   %d\n", t.Progress.ToolCallCount)
	if t.Progress.LastToolUsed != "" {
		fmt.Fprintf(w, "Last tool:    %s\n", t.Progress.LastToolUsed)
	}
	if t.Routing != nil {
		fmt.Fprintf(w, "Routing:      %s (%s, %.2f) %s\n", t.Routing.Agent, t.Routing.Autonomy, t.Routing.Confidence, t.Routing.Reason)
	}
	if t.Result != "" {
		fmt.Fprintf(w, "\nResult:\n%s\n", t.Result)
	}
	if t.Error != "" {
		fmt.Fprintf(w, "\nError: %s\n", t.Error)
	}
}

func printTaskTable(w io.Writer, list []*tasks.Task) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Agent", "Status", "Started", "Tools", "Description"})
	for _, t := range list {
		tw.AppendRow(table.Row{t.ID, t.Agent, t.Status, formatTime(t.StartedAt), t.Progress.ToolCallCount, summarize(t.Description, 40)})
	}
	tw.Render()
}

func filterParent(list []*tasks.Task, parent string) []*tasks.Task {
	var out []*tasks.Task
	for _, t := range list {
		if t.ParentSessionID == parent {
			out = append(out, t)
		}
	}
	return out
}

func formatCounts(counts map[tasks.Status]int) string {
	var sb strings.Builder
	for _, s := range tasks.Statuses {
		if counts[s] > 0 {
			fmt.Fprintf(&sb, " %d %s", counts[s], s)
		}
	}
	return sb.String()
}

func statusNames() []string {
	names := make([]string, len(tasks.Statuses))
	for i, s := range tasks.Statuses {
		names[i] = string(s)
	}
	return names
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// summarize returns the first line of s cut to limit runes.
func summarize(s string, limit int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}

