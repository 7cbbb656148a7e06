// Package staleness holds the time-based policies that decide when a task or
// a persisted mode state is no longer authoritative. Everything here is pure:
// callers pass "now" explicitly.
package staleness

import (
	"strings"
	"time"
)

// Defaults used when a policy field is zero.
const (
	DefaultTaskTTL        = 30 * time.Minute
	DefaultStaleThreshold = 5 * time.Minute
	DefaultModeStaleAfter = 2 * time.Hour
)

// Reason explains why a task is stale.
type Reason string

const (
	None       Reason = ""
	Timeout    Reason = "timeout"
	Inactivity Reason = "stale"
)

// TaskClock is the part of a task the policy looks at.
type TaskClock struct {
	StartedAt    time.Time
	LastActivity time.Time
	Running      bool
}

// TaskPolicy bounds a task by absolute age and by activity recency.
type TaskPolicy struct {
	TTL            time.Duration
	StaleThreshold time.Duration
}

func (p TaskPolicy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultTaskTTL
	}
	return p.TTL
}

// InactivityLimit is twice the stale threshold; one missed heartbeat is not
// enough to prune.
func (p TaskPolicy) InactivityLimit() time.Duration {
	threshold := p.StaleThreshold
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return 2 * threshold
}

// Evaluate returns the reason a non-terminal task should be pruned, or None.
// The timeout check wins over the inactivity check. Only running tasks are
// subject to the inactivity check.
func (p TaskPolicy) Evaluate(c TaskClock, now time.Time) Reason {
	if now.Sub(c.StartedAt) > p.ttl() {
		return Timeout
	}

	if c.Running {
		last := c.LastActivity
		if last.IsZero() {
			last = c.StartedAt
		}
		if now.Sub(last) > p.InactivityLimit() {
			return Inactivity
		}
	}

	return None
}

// ModePolicy decides when a persisted mode state has gone quiet for too long.
type ModePolicy struct {
	StaleAfter time.Duration
}

func (p ModePolicy) window() time.Duration {
	if p.StaleAfter <= 0 {
		return DefaultModeStaleAfter
	}
	return p.StaleAfter
}

// IsStale reports whether a mode state with the given raw timestamps is
// stale at now. A state is stale when neither timestamp parses or the newer
// of the two is older than the window.
func (p ModePolicy) IsStale(lastCheckedAt, startedAt string, now time.Time) bool {
	var newest time.Time
	found := false

	for _, raw := range []string{lastCheckedAt, startedAt} {
		ts, ok := ParseTimestamp(raw)
		if !ok {
			continue
		}
		if !found || ts.After(newest) {
			newest = ts
			found = true
		}
	}

	if !found {
		return true
	}

	return now.Sub(newest) > p.window()
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses an ISO 8601 timestamp with or without a zone.
// Zone-less values are read as local time.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		var (
			ts  time.Time
			err error
		)
		if strings.Contains(layout, "Z07:00") {
			ts, err = time.Parse(layout, raw)
		} else {
			ts, err = time.ParseInLocation(layout, raw, time.Local)
		}
		if err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}

// FormatTimestamp is the canonical encoding for timestamps written to mode
// state records.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
