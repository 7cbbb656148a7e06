package modes

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/qazz92/oh-my-droid/internal/config"
	"github.com/qazz92/oh-my-droid/internal/staleness"
	"github.com/qazz92/oh-my-droid/internal/store"
)

// Scope says where a state record lives.
type Scope string

const (
	// ScopeSession is <project>/.omd/state/sessions/<session>/<mode>-state.json
	ScopeSession Scope = "session"
	// ScopeProject is <project>/.omd/state/<mode>-state.json
	ScopeProject Scope = "project"
	// ScopeUser is ~/.omd/state/<mode>-state.json, only ever cleared
	ScopeUser Scope = "user"
)

// Journal event kinds.
const (
	EventActivated  = "mode.activated"
	EventCancelled  = "mode.cancelled"
	EventReinforced = "mode.reinforced"
)

// State is the activation record of one mode. Timestamps are kept as the
// strings found on disk and parsed leniently when staleness is checked.
type State struct {
	Active             bool   `json:"active"`
	StartedAt          string `json:"started_at"`
	OriginalPrompt     string `json:"original_prompt"`
	SessionID          string `json:"session_id,omitempty"`
	ReinforcementCount int    `json:"reinforcement_count"`
	LastCheckedAt      string `json:"last_checked_at"`
}

// stateRecord is the on-disk shape written on activation. session_id is
// null when no session is known.
type stateRecord struct {
	Active             bool    `json:"active"`
	StartedAt          string  `json:"started_at"`
	OriginalPrompt     string  `json:"original_prompt"`
	SessionID          *string `json:"session_id"`
	ReinforcementCount int     `json:"reinforcement_count"`
	LastCheckedAt      string  `json:"last_checked_at"`
}

// Record is a loaded state together with where it came from.
type Record struct {
	Mode  Mode
	Scope Scope
	State State

	raw []byte
}

// Recorder receives mode lifecycle events.
type Recorder interface {
	Record(kind, subject, sessionID, detail string) error
}

// Options configures a StateStore.
type Options struct {
	// ProjectDir is the project state root, normally <project>/.omd/state.
	ProjectDir string
	// UserDir is the user-global state root, normally ~/.omd/state.
	UserDir  string
	Policy   staleness.ModePolicy
	Recorder Recorder
	Now      func() time.Time
}

// StateStore reads and writes mode state records.
type StateStore struct {
	project  *store.Store
	user     *store.Store
	policy   staleness.ModePolicy
	recorder Recorder
	now      func() time.Time
}

// NewStateStore creates a StateStore from opts.
func NewStateStore(opts Options) *StateStore {
	s := &StateStore{
		project:  store.New(opts.ProjectDir),
		policy:   opts.Policy,
		recorder: opts.Recorder,
		now:      opts.Now,
	}
	if opts.UserDir != "" {
		s.user = store.New(opts.UserDir)
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Path returns the file backing mode in the given scope.
func (s *StateStore) Path(mode Mode, scope Scope, sessionID string) string {
	switch scope {
	case ScopeSession:
		return s.project.Path(sessionKey(mode, sessionID))
	case ScopeUser:
		if s.user == nil {
			return ""
		}
		return s.user.Path(globalKey(mode))
	default:
		return s.project.Path(globalKey(mode))
	}
}

func globalKey(mode Mode) string {
	return string(mode) + "-state"
}

// sessionKey returns "" for session ids that would escape the sessions
// directory; the store rejects the empty key.
func sessionKey(mode Mode, sessionID string) string {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return ""
	}
	return "sessions/" + sessionID + "/" + globalKey(mode)
}

// Load returns the state for mode, preferring the session record and
// falling back to the project-global one.
func (s *StateStore) Load(mode Mode, sessionID string) (*Record, bool) {
	if sessionID != "" {
		if rec, ok := s.read(mode, ScopeSession, sessionKey(mode, sessionID)); ok {
			return rec, true
		}
	}
	return s.read(mode, ScopeProject, globalKey(mode))
}

// LoadScoped returns the state for mode from exactly one place: the session
// record when a session id is known, the project-global record otherwise. A
// session record that names a different session is ignored.
func (s *StateStore) LoadScoped(mode Mode, sessionID string) (*Record, bool) {
	if sessionID == "" {
		return s.read(mode, ScopeProject, globalKey(mode))
	}

	rec, ok := s.read(mode, ScopeSession, sessionKey(mode, sessionID))
	if !ok {
		return nil, false
	}
	if rec.State.SessionID != "" && rec.State.SessionID != sessionID {
		return nil, false
	}
	return rec, true
}

func (s *StateStore) read(mode Mode, scope Scope, key string) (*Record, bool) {
	if key == "" {
		return nil, false
	}
	raw, ok := s.project.GetRaw(key)
	if !ok {
		return nil, false
	}
	state, ok := parseState(raw)
	if !ok {
		log.Printf("warning: skipping malformed %s state at %s", mode, s.project.Path(key))
		return nil, false
	}
	return &Record{Mode: mode, Scope: scope, State: state, raw: raw}, true
}

// parseState decodes a state record with defaults for anything missing or
// mistyped.
func parseState(raw []byte) (State, bool) {
	if !gjson.ValidBytes(raw) {
		return State{}, false
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return State{}, false
	}

	count := int(doc.Get("reinforcement_count").Int())
	if count < 0 {
		count = 0
	}

	return State{
		Active:             doc.Get("active").Bool(),
		StartedAt:          doc.Get("started_at").String(),
		OriginalPrompt:     doc.Get("original_prompt").String(),
		SessionID:          doc.Get("session_id").String(),
		ReinforcementCount: count,
		LastCheckedAt:      doc.Get("last_checked_at").String(),
	}, true
}

// IsLive reports whether a loaded state is active and not stale.
func (s *StateStore) IsLive(rec *Record) bool {
	if rec == nil || !rec.State.Active {
		return false
	}
	return !s.policy.IsStale(rec.State.LastCheckedAt, rec.State.StartedAt, s.now())
}

// Activate writes a fresh state for mode. The record is session scoped when
// sessionID is set and project-global otherwise.
func (s *StateStore) Activate(mode Mode, prompt, sessionID string) (State, error) {
	now := staleness.FormatTimestamp(s.now())

	rec := stateRecord{
		Active:         true,
		StartedAt:      now,
		OriginalPrompt: prompt,
		LastCheckedAt:  now,
	}
	if sessionID != "" {
		rec.SessionID = &sessionID
	}

	if err := s.project.Put(s.writeKey(mode, sessionID), rec); err != nil {
		return State{}, fmt.Errorf("failed to activate %s: %w", mode, err)
	}

	s.record(EventActivated, mode, sessionID, "")
	return State{
		Active:         true,
		StartedAt:      now,
		OriginalPrompt: prompt,
		SessionID:      sessionID,
		LastCheckedAt:  now,
	}, nil
}

// ActivateAll activates every activatable mode in resolved and returns the
// ones written. Failures are collected and do not stop the others.
func (s *StateStore) ActivateAll(resolved []Mode, prompt, sessionID string) ([]Mode, error) {
	var (
		activated []Mode
		errs      []error
	)
	for _, m := range resolved {
		if !m.Activatable() {
			continue
		}
		if _, err := s.Activate(m, prompt, sessionID); err != nil {
			errs = append(errs, err)
			continue
		}
		activated = append(activated, m)
	}
	return activated, errors.Join(errs...)
}

// Cancel deletes every persistent mode's state in the project-global and
// user-global scopes, and in the session scope when sessionID is set. It
// returns the number of records removed.
func (s *StateStore) Cancel(sessionID string) (int, error) {
	var (
		removed int
		errs    []error
	)

	drop := func(st *store.Store, key string) {
		if st == nil || key == "" {
			return
		}
		existed, err := st.Delete(key)
		if err != nil {
			errs = append(errs, err)
			return
		}
		if existed {
			removed++
		}
	}

	for _, m := range Persistent {
		drop(s.project, globalKey(m))
		drop(s.user, globalKey(m))
		if sessionID != "" {
			drop(s.project, sessionKey(m, sessionID))
		}
	}

	s.record(EventCancelled, Cancel, sessionID, fmt.Sprintf("%d records", removed))
	return removed, errors.Join(errs...)
}

// Reinforce bumps the reinforcement count of a loaded state and refreshes
// last_checked_at. The write goes to the session scope when sessionID is
// set, otherwise the project-global scope. Fields this package does not
// know about are preserved.
func (s *StateStore) Reinforce(rec *Record, sessionID string) (State, error) {
	state := rec.State
	state.ReinforcementCount++
	state.LastCheckedAt = staleness.FormatTimestamp(s.now())

	raw := rec.raw
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	patched, err := sjson.SetBytes(raw, "reinforcement_count", state.ReinforcementCount)
	if err == nil {
		patched, err = sjson.SetBytes(patched, "last_checked_at", state.LastCheckedAt)
	}
	if err != nil {
		return state, fmt.Errorf("failed to update %s state: %w", rec.Mode, err)
	}

	if err := s.project.PutRaw(s.writeKey(rec.Mode, sessionID), patched); err != nil {
		return state, fmt.Errorf("failed to persist %s state: %w", rec.Mode, err)
	}

	rec.State = state
	rec.raw = patched
	s.record(EventReinforced, rec.Mode, sessionID, fmt.Sprintf("#%d", state.ReinforcementCount))
	return state, nil
}

func (s *StateStore) writeKey(mode Mode, sessionID string) string {
	if sessionID != "" {
		return sessionKey(mode, sessionID)
	}
	return globalKey(mode)
}

// ModeStatus describes one persistent mode for display.
type ModeStatus struct {
	Mode  Mode   `json:"mode"`
	Found bool   `json:"found"`
	Live  bool   `json:"live"`
	Scope Scope  `json:"scope,omitempty"`
	State *State `json:"state,omitempty"`
}

// Status reports every persistent mode as Load sees it.
func (s *StateStore) Status(sessionID string) []ModeStatus {
	out := make([]ModeStatus, 0, len(Persistent))
	for _, m := range Persistent {
		st := ModeStatus{Mode: m}
		if rec, ok := s.Load(m, sessionID); ok {
			state := rec.State
			st.Found = true
			st.Scope = rec.Scope
			st.State = &state
			st.Live = s.IsLive(rec)
		}
		out = append(out, st)
	}
	return out
}

func (s *StateStore) record(kind string, mode Mode, sessionID, detail string) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(kind, string(mode), sessionID, detail); err != nil {
		log.Printf("warning: failed to journal %s for %s: %v", kind, mode, err)
	}
}

// ForProject returns a StateStore for the project rooted at projectDir.
func ForProject(cfg *config.Config, projectDir string, rec Recorder) *StateStore {
	return NewStateStore(Options{
		ProjectDir: filepath.Join(cfg.ProjectStateDir(projectDir), "state"),
		UserDir:    cfg.GlobalStateDir(),
		Policy:     staleness.ModePolicy{StaleAfter: cfg.Modes.StaleAfter},
		Recorder:   rec,
	})
}
