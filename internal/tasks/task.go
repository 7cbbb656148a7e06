package tasks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when an operation names an unknown task id.
	ErrNotFound = errors.New("task not found")
	// ErrTerminal is returned when a finished task is asked to change status.
	ErrTerminal = errors.New("task already finished")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusQueued, StatusRunning, StatusCompleted, StatusError, StatusCancelled}

// Valid returns true if the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true for completed, error and cancelled.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// RoutingDecision is the router's verdict attached to a task. It is stored
// and forwarded, never computed here.
type RoutingDecision struct {
	Agent      string  `json:"agent"`
	Autonomy   string  `json:"autonomy"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Progress is the heartbeat sub-record of a task.
type Progress struct {
	ToolCallCount   int        `json:"tool_call_count"`
	LastToolUsed    string     `json:"last_tool_used,omitempty"`
	LastUpdateTime  time.Time  `json:"last_update_time"`
	LastMessage     string     `json:"last_message,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
}

// Task is one unit of background agent work.
type Task struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"session_id"`
	ParentSessionID string           `json:"parent_session_id"`
	Description     string           `json:"description"`
	Prompt          string           `json:"prompt"`
	Agent           string           `json:"agent"`
	ConcurrencyKey  string           `json:"concurrency_key,omitempty"`
	ParentModel     string           `json:"parent_model,omitempty"`
	Routing         *RoutingDecision `json:"routing,omitempty"`
	Status          Status           `json:"status"`
	StartedAt       time.Time        `json:"started_at"`
	QueuedAt        *time.Time       `json:"queued_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	Progress        Progress         `json:"progress"`
	Result          string           `json:"result,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// Validate rejects records that cannot be a task. completed_at must be set
// exactly when the status is terminal.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task has no id")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Status.Terminal() != (t.CompletedAt != nil) {
		return fmt.Errorf("task %s is %s but completed_at is %v", t.ID, t.Status, t.CompletedAt)
	}
	return nil
}

// LastActivity is the most recent heartbeat, falling back to the start time.
func (t *Task) LastActivity() time.Time {
	if t.Progress.LastUpdateTime.IsZero() {
		return t.StartedAt
	}
	return t.Progress.LastUpdateTime
}

func (t *Task) clone() *Task {
	c := *t
	if t.Routing != nil {
		r := *t.Routing
		c.Routing = &r
	}
	c.QueuedAt = cloneTime(t.QueuedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.Progress.LastMessageTime = cloneTime(t.Progress.LastMessageTime)
	return &c
}

// finish moves the task into a terminal status and stamps completed_at.
func (t *Task) finish(status Status, now time.Time) {
	t.Status = status
	t.CompletedAt = &now
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// newTaskID returns "bg_" + hex milliseconds + 6 random hex characters.
func newTaskID(now time.Time) string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "bg_" + strconv.FormatInt(now.UnixMilli(), 16) + random[:6]
}

// newSessionID returns "ses_" + 12 random hex characters.
func newSessionID() string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "ses_" + random[:12]
}

// truncateRunes cuts s to at most limit runes.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
