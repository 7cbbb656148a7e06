// Package tasks implements the background task registry and its lifecycle
// manager.
//
// # Storage
//
// Each task is one JSON record in the task directory (default
// ~/.omd/background-tasks/{taskID}.json). The in-memory Registry is the
// authority while a process runs; it is reloaded from disk when a Registry is
// opened. Records that fail to decode, or carry an unknown status, are
// skipped during the load.
//
// # Lifecycle
//
//	launch ──► running ──► completed | error | cancelled
//	              │
//	              └─ prune (timeout / inactivity) ──► error, dropped from memory
//
// Tasks are created running; there is no separate dispatch step. Terminal
// statuses are final. Non-terminal status changes are not persisted; progress
// updates always are, since they are the heartbeat the inactivity check reads.
//
// # Staleness
//
// PruneStale applies two independent clocks (see package staleness):
//
//   - timeout: now - started_at > TTL (default 30m), queued and running tasks
//   - inactivity: now - progress.last_update_time > 2 × stale threshold
//     (default 10m), running tasks only
//
// A pruned task becomes "error" with the message "Task <reason>: no activity".
//
// # Usage
//
//	reg, err := tasks.OpenRegistry(store.New(cfg.Tasks.Dir))
//	mgr := tasks.NewManager(reg, tasks.Options{Executor: spawner})
//	task, err := mgr.Launch(ctx, tasks.LaunchRequest{...})
//	mgr.UpdateProgress(task.ID, tasks.ProgressUpdate{LastTool: &tool})
//	status, err := mgr.Complete(task.ID, "done", "")
//	result := mgr.PruneStale()
package tasks
