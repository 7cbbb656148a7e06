// Package journal keeps an append-only sqlite log of task and mode lifecycle
// events. It backs "omd history" and is written by the task manager and the
// hook handlers. A missing or broken journal never blocks the operation that
// tried to record into it; callers log and move on.
package journal

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Event is one journal entry.
type Event struct {
	ID        int64     `json:"id"`
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	SessionID  string
	Subject    string
	KindPrefix string
	Since      time.Time
	Limit      int
}

// Journal is a handle on the sqlite database.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=2000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}

	return &Journal{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an event stamped with the current time.
func (j *Journal) Record(kind, subject, sessionID, detail string) error {
	return j.Append(Event{
		At:        j.now(),
		Kind:      kind,
		Subject:   subject,
		SessionID: sessionID,
		Detail:    detail,
	})
}

// Append writes ev as given.
func (j *Journal) Append(ev Event) error {
	if ev.Kind == "" {
		return fmt.Errorf("journal event has no kind")
	}
	if ev.At.IsZero() {
		ev.At = j.now()
	}

	_, err := j.db.Exec(`
		INSERT INTO events (at, kind, subject, session_id, detail)
		VALUES (?, ?, ?, ?, ?)
	`,
		ev.At.UTC().Format(timeLayout),
		ev.Kind,
		ev.Subject,
		ev.SessionID,
		ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal event: %w", err)
	}
	return nil
}

// List returns events matching f, oldest first. With a Limit, the newest
// Limit events are returned, still oldest first.
func (j *Journal) List(f Filter) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	if f.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.Subject != "" {
		where = append(where, "subject = ?")
		args = append(args, f.Subject)
	}
	if f.KindPrefix != "" {
		where = append(where, "kind LIKE ? ESCAPE '\\'")
		args = append(args, escapeLike(f.KindPrefix)+"%")
	}
	if !f.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, f.Since.UTC().Format(timeLayout))
	}

	query := "SELECT id, at, kind, subject, session_id, detail FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			ev Event
			at string
		)
		if err := rows.Scan(&ev.ID, &at, &ev.Kind, &ev.Subject, &ev.SessionID, &ev.Detail); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, at); err != nil {
			log.Printf("warning: failed to parse timestamp for journal event %d: %v", ev.ID, err)
		} else {
			ev.At = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order
	for i, k := 0, len(events)-1; i < k; i, k = i+1, k-1 {
		events[i], events[k] = events[k], events[i]
	}
	return events, nil
}

// Trim deletes events older than cutoff and returns how many were removed.
func (j *Journal) Trim(cutoff time.Time) (int64, error) {
	res, err := j.db.Exec("DELETE FROM events WHERE at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to trim journal: %w", err)
	}
	return res.RowsAffected()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
