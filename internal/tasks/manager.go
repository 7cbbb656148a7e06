package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/staleness"
	"github.com/qazz92/oh-my-droid/internal/store"
)

// DefaultMessageLimit caps progress.last_message in runes.
const DefaultMessageLimit = 500

// Executor starts the agent process for a launched task.
type Executor interface {
	Spawn(ctx context.Context, agent, prompt string) error
}

// Recorder receives lifecycle events. The journal implements it.
type Recorder interface {
	Record(kind, subject, sessionID, detail string) error
}

// Lifecycle event kinds passed to a Recorder.
const (
	EventLaunched  = "task.launched"
	EventCompleted = "task.completed"
	EventStatus    = "task.status"
	EventPruned    = "task.pruned"
	EventRemoved   = "task.removed"
	EventCleaned   = "task.cleaned"
)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	Executor     Executor
	Recorder     Recorder
	Policy       staleness.TaskPolicy
	MessageLimit int
	Now          func() time.Time
}

// LaunchRequest describes a task to start.
type LaunchRequest struct {
	Description     string
	Prompt          string
	Agent           string
	ParentSessionID string
	ParentModel     string
	ConcurrencyKey  string
	Routing         *RoutingDecision
}

// ProgressUpdate carries the progress fields to change. Nil fields are left
// alone.
type ProgressUpdate struct {
	ToolCallCount *int
	LastTool      *string
	LastMessage   *string
}

// Pruned names one task removed by PruneStale.
type Pruned struct {
	ID     string           `json:"id"`
	Reason staleness.Reason `json:"reason"`
}

// PruneResult lists the tasks removed by one PruneStale pass.
type PruneResult struct {
	Removed []Pruned `json:"removed"`
}

// Summary counts tasks per status.
type Summary struct {
	Total  int            `json:"total"`
	Counts map[Status]int `json:"counts"`
	Tasks  []*Task        `json:"tasks"`
}

// ResumeContext is what a parent session needs to pick a task back up.
type ResumeContext struct {
	SessionID         string     `json:"session_id"`
	PreviousPrompt    string     `json:"previous_prompt"`
	ToolCallCount     int        `json:"tool_call_count"`
	LastToolUsed      string     `json:"last_tool_used,omitempty"`
	LastOutputSummary string     `json:"last_output_summary,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	LastActivityAt    time.Time  `json:"last_activity_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	Status            Status     `json:"status"`
}

// Manager drives task lifecycle transitions on top of a Registry.
type Manager struct {
	mu       sync.Mutex
	reg      *Registry
	executor Executor
	recorder Recorder
	policy   staleness.TaskPolicy
	limit    int
	now      func() time.Time
}

// NewManager creates a Manager over reg.
func NewManager(reg *Registry, opts Options) *Manager {
	m := &Manager{
		reg:      reg,
		executor: opts.Executor,
		recorder: opts.Recorder,
		policy:   opts.Policy,
		limit:    opts.MessageLimit,
		now:      opts.Now,
	}
	if m.limit <= 0 {
		m.limit = DefaultMessageLimit
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Registry returns the underlying registry.
func (m *Manager) Registry() *Registry {
	return m.reg
}

// Launch creates a running task, persists it and asks the executor to start
// the agent. Executor failures are logged and do not fail the launch.
func (m *Manager) Launch(ctx context.Context, req LaunchRequest) (*Task, error) {
	now := m.now()

	key := req.ConcurrencyKey
	if key == "" {
		key = req.Agent
	}

	task := &Task{
		ID:              newTaskID(now),
		SessionID:       newSessionID(),
		ParentSessionID: req.ParentSessionID,
		Description:     req.Description,
		Prompt:          req.Prompt,
		Agent:           req.Agent,
		ConcurrencyKey:  key,
		ParentModel:     req.ParentModel,
		Routing:         req.Routing,
		Status:          StatusRunning,
		StartedAt:       now,
		Progress: Progress{
			LastUpdateTime: now,
		},
	}

	m.mu.Lock()
	err := m.reg.Save(task)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to launch task: %w", err)
	}

	if m.executor != nil {
		if err := m.executor.Spawn(ctx, req.Agent, req.Prompt); err != nil {
			log.Printf("warning: task %s launched without an agent process: %v", task.ID, err)
		}
	}

	m.record(EventLaunched, task, req.Agent)
	return task.clone(), nil
}

// Get returns a copy of a task.
func (m *Manager) Get(id string) (*Task, bool) {
	return m.reg.Get(id)
}

// List returns every task held in memory, oldest first.
func (m *Manager) List() []*Task {
	return m.reg.All()
}

// ListByStatus returns tasks with the given status.
func (m *Manager) ListByStatus(status Status) []*Task {
	return m.filter(func(t *Task) bool { return t.Status == status })
}

// ListByParentSession returns tasks launched from the given parent session.
func (m *Manager) ListByParentSession(parentSessionID string) []*Task {
	return m.filter(func(t *Task) bool { return t.ParentSessionID == parentSessionID })
}

// FindBySession returns the task whose own session id matches.
func (m *Manager) FindBySession(sessionID string) (*Task, bool) {
	if sessionID == "" {
		return nil, false
	}
	for _, t := range m.reg.All() {
		if t.SessionID == sessionID {
			return t, true
		}
	}
	return nil, false
}

func (m *Manager) filter(keep func(*Task) bool) []*Task {
	var out []*Task
	for _, t := range m.reg.All() {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

// Complete finishes a task: "completed" when errMsg is empty, "error"
// otherwise.
func (m *Manager) Complete(id, result, errMsg string) (Status, error) {
	status := StatusCompleted
	if errMsg != "" {
		status = StatusError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.reg.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if task.Status.Terminal() {
		return task.Status, fmt.Errorf("%w: %s is %s", ErrTerminal, id, task.Status)
	}

	task.finish(status, m.now())
	if status == StatusError {
		task.Error = errMsg
		task.Result = ""
	} else {
		task.Result = result
		task.Error = ""
	}

	if err := m.reg.Save(task); err != nil {
		return "", err
	}

	m.record(EventCompleted, task, string(status))
	return status, nil
}

// CompleteBySession finishes the task whose session id matches.
func (m *Manager) CompleteBySession(sessionID, result string) (*Task, error) {
	task, ok := m.FindBySession(sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: no task for session %s", ErrNotFound, sessionID)
	}
	if _, err := m.Complete(task.ID, result, ""); err != nil {
		return nil, err
	}
	done, _ := m.reg.Get(task.ID)
	return done, nil
}

// UpdateStatus sets a task's status. Only terminal statuses are persisted;
// other changes live in memory until the next persisted write.
func (m *Manager) UpdateStatus(id string, status Status, result, errMsg *string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if task.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, id, task.Status)
	}

	now := m.now()
	task.Status = status
	if result != nil {
		task.Result = *result
	}
	if errMsg != nil {
		task.Error = *errMsg
	}

	if !status.Terminal() {
		if status == StatusQueued && task.QueuedAt == nil {
			task.QueuedAt = &now
		}
		m.reg.Track(task)
		return nil
	}

	task.finish(status, now)
	switch status {
	case StatusCompleted:
		task.Error = ""
	case StatusError:
		task.Result = ""
	case StatusCancelled:
		if task.Error != "" {
			task.Result = ""
		}
	}

	if err := m.reg.Save(task); err != nil {
		return err
	}

	m.record(EventStatus, task, string(status))
	return nil
}

// UpdateProgress applies a heartbeat. The last message is cut to the message
// limit and last_update_time never moves backwards. The record is always
// persisted.
func (m *Manager) UpdateProgress(id string, update ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.reg.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	m.applyProgress(task, update)
	return m.reg.Save(task)
}

func (m *Manager) applyProgress(task *Task, update ProgressUpdate) {
	now := m.now()

	if update.ToolCallCount != nil {
		task.Progress.ToolCallCount = *update.ToolCallCount
	}
	if update.LastTool != nil {
		task.Progress.LastToolUsed = *update.LastTool
	}
	if update.LastMessage != nil {
		task.Progress.LastMessage = truncateRunes(*update.LastMessage, m.limit)
		stamp := now
		task.Progress.LastMessageTime = &stamp
	}

	if now.After(task.Progress.LastUpdateTime) {
		task.Progress.LastUpdateTime = now
	}
}

// RecordToolUse counts one tool call against the running task owned by
// sessionID. It reports whether such a task exists.
func (m *Manager) RecordToolUse(sessionID, tool string) (bool, error) {
	task, ok := m.FindBySession(sessionID)
	if !ok || task.Status != StatusRunning {
		return false, nil
	}

	count := task.Progress.ToolCallCount + 1
	update := ProgressUpdate{ToolCallCount: &count}
	if tool != "" {
		update.LastTool = &tool
	}
	if err := m.UpdateProgress(task.ID, update); err != nil {
		return true, err
	}
	return true, nil
}

// Remove deletes a task from memory and disk. Removing an unknown id is not
// an error.
func (m *Manager) Remove(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existed, err := m.reg.Delete(id)
	if err != nil {
		return existed, fmt.Errorf("failed to remove task %s: %w", id, err)
	}
	if existed {
		m.record(EventRemoved, &Task{ID: id}, "")
	}
	return existed, nil
}

// PruneStale fails every queued or running task that has outlived the TTL,
// and every running task that has gone quiet for twice the stale threshold.
// Pruned tasks are persisted as errors and dropped from memory, so a second
// pass with the same clock removes nothing.
func (m *Manager) PruneStale() PruneResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var result PruneResult

	for _, task := range m.reg.All() {
		if task.Status != StatusRunning && task.Status != StatusQueued {
			continue
		}

		reason := m.policy.Evaluate(staleness.TaskClock{
			StartedAt:    task.StartedAt,
			LastActivity: task.LastActivity(),
			Running:      task.Status == StatusRunning,
		}, now)
		if reason == staleness.None {
			continue
		}

		task.finish(StatusError, now)
		task.Error = fmt.Sprintf("Task %s: no activity", reason)
		task.Result = ""

		if err := m.reg.Save(task); err != nil {
			logRecordError("persist pruned", task.ID, err)
		}
		m.reg.Forget(task.ID)

		m.record(EventPruned, task, string(reason))
		result.Removed = append(result.Removed, Pruned{ID: task.ID, Reason: reason})
	}

	return result
}

// Cleanup deletes persisted terminal records whose completed_at is older than
// maxAge. It returns the number of records removed.
func (m *Manager) Cleanup(maxAge time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	persisted, err := m.reg.Persisted()
	if err != nil {
		return 0, err
	}

	cutoff := m.now().Add(-maxAge)
	removed := 0
	var errs []error

	for i := range persisted {
		task := &persisted[i]
		if !task.Status.Terminal() || task.CompletedAt == nil || !task.CompletedAt.Before(cutoff) {
			continue
		}
		if _, err := m.reg.Delete(task.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
		m.record(EventCleaned, task, "")
	}

	return removed, errors.Join(errs...)
}

// Summary counts every in-memory task per status.
func (m *Manager) Summary() Summary {
	list := m.reg.All()
	s := Summary{
		Total:  len(list),
		Counts: make(map[Status]int, len(Statuses)),
		Tasks:  list,
	}
	for _, st := range Statuses {
		s.Counts[st] = 0
	}
	for _, t := range list {
		s.Counts[t.Status]++
	}
	return s
}

// ResumeContext returns what is needed to continue the task owned by
// sessionID.
func (m *Manager) ResumeContext(sessionID string) (*ResumeContext, bool) {
	task, ok := m.FindBySession(sessionID)
	if !ok {
		return nil, false
	}
	return &ResumeContext{
		SessionID:         task.SessionID,
		PreviousPrompt:    task.Prompt,
		ToolCallCount:     task.Progress.ToolCallCount,
		LastToolUsed:      task.Progress.LastToolUsed,
		LastOutputSummary: task.Progress.LastMessage,
		StartedAt:         task.StartedAt,
		LastActivityAt:    task.LastActivity(),
		CompletedAt:       task.CompletedAt,
		Status:            task.Status,
	}, true
}

func (m *Manager) record(kind string, task *Task, detail string) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.Record(kind, task.ID, task.SessionID, detail); err != nil {
		log.Printf("warning: failed to journal %s for %s: %v", kind, task.ID, err)
	}
}

// Open loads the registry from the configured task directory and returns a
// Manager using the configured policy.
func Open(cfg config.TasksConfig, exec Executor, rec Recorder) (*Manager, error) {
	reg, err := OpenRegistry(store.New(cfg.Dir))
	if err != nil {
		return nil, err
	}
	return NewManager(reg, Options{
		Executor: exec,
		Recorder: rec,
		Policy: staleness.TaskPolicy{
			TTL:            cfg.TTL,
			StaleThreshold: cfg.StaleThreshold,
		},
		MessageLimit: cfg.MessageLimit,
	}), nil
}
