package modes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/qazz92/oh-my-droid/internal/staleness"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

type recorded struct {
	kinds []string
}

func (r *recorded) Record(kind, _, _, _ string) error {
	r.kinds = append(r.kinds, kind)
	return nil
}

func newTestStore(t *testing.T) (*StateStore, *testClock, string, string) {
	t.Helper()
	project := filepath.Join(t.TempDir(), ".omd", "state")
	user := filepath.Join(t.TempDir(), ".omd", "state")
	clock := &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStateStore(Options{
		ProjectDir: project,
		UserDir:    user,
		Policy:     staleness.ModePolicy{StaleAfter: 2 * time.Hour},
		Now:        clock.Now,
	})
	return s, clock, project, user
}

func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestActivateSessionScoped(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	if _, err := s.Activate(Ralph, "fix it", "sess-1"); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}

	path := filepath.Join(project, "sessions", "sess-1", "ralph-state.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected session state file: %v", err)
	}

	doc := gjson.ParseBytes(data)
	if !doc.Get("active").Bool() || doc.Get("session_id").String() != "sess-1" || doc.Get("reinforcement_count").Int() != 0 {
		t.Errorf("Unexpected state: %s", data)
	}
	if doc.Get("original_prompt").String() != "fix it" {
		t.Errorf("Expected original prompt, got %s", doc.Get("original_prompt"))
	}
}

func TestActivateGlobalWritesNullSession(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	s.Activate(Autopilot, "ship", "")

	data, err := os.ReadFile(filepath.Join(project, "autopilot-state.json"))
	if err != nil {
		t.Fatalf("Expected global state file: %v", err)
	}
	if v := gjson.GetBytes(data, "session_id"); v.Type != gjson.Null {
		t.Errorf("Expected null session_id, got %s", v.Raw)
	}
}

func TestLoadPrefersSession(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestStore(t)

	s.Activate(Ralph, "global task", "")
	s.Activate(Ralph, "session task", "sess-1")

	rec, ok := s.Load(Ralph, "sess-1")
	if !ok || rec.Scope != ScopeSession || rec.State.OriginalPrompt != "session task" {
		t.Errorf("Expected session record, got %+v", rec)
	}

	rec, ok = s.Load(Ralph, "sess-2")
	if !ok || rec.Scope != ScopeProject || rec.State.OriginalPrompt != "global task" {
		t.Errorf("Expected fallback to global record, got %+v", rec)
	}
}

func TestLoadScopedRejectsForeignSession(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	writeRaw(t, filepath.Join(project, "sessions", "sess-1", "ultrawork-state.json"),
		`{"active": true, "session_id": "someone-else", "started_at": "2025-03-01T11:00:00Z"}`)

	if _, ok := s.LoadScoped(Ultrawork, "sess-1"); ok {
		t.Error("Expected record with foreign session id to be ignored")
	}

	s.Activate(Ralph, "global", "")
	if _, ok := s.LoadScoped(Ralph, "sess-1"); ok {
		t.Error("Expected LoadScoped not to fall back to the global record")
	}
	if _, ok := s.LoadScoped(Ralph, ""); !ok {
		t.Error("Expected global record without a session")
	}
}

func TestLoadLenientRecord(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	writeRaw(t, filepath.Join(project, "ecomode-state.json"),
		`{"active": true, "reinforcement_count": "4", "started_at": "2025-03-01T11:30:00.123456"}`)
	writeRaw(t, filepath.Join(project, "ralph-state.json"), `["not", "an", "object"]`)
	writeRaw(t, filepath.Join(project, "autopilot-state.json"), `{broken`)

	rec, ok := s.Load(Ecomode, "")
	if !ok {
		t.Fatal("Expected lenient record to load")
	}
	if rec.State.ReinforcementCount != 4 || rec.State.SessionID != "" {
		t.Errorf("Unexpected state: %+v", rec.State)
	}

	if _, ok := s.Load(Ralph, ""); ok {
		t.Error("Expected non-object record to be absent")
	}
	if _, ok := s.Load(Autopilot, ""); ok {
		t.Error("Expected malformed record to be absent")
	}
}

func TestIsLive(t *testing.T) {
	t.Parallel()
	s, clock, _, _ := newTestStore(t)

	fresh := func(checked time.Time, active bool) *Record {
		return &Record{State: State{
			Active:        active,
			StartedAt:     staleness.FormatTimestamp(clock.now.Add(-5 * time.Hour)),
			LastCheckedAt: staleness.FormatTimestamp(checked),
		}}
	}

	if !s.IsLive(fresh(clock.now.Add(-time.Hour), true)) {
		t.Error("Expected recently checked state to be live")
	}
	if s.IsLive(fresh(clock.now.Add(-(2*time.Hour + time.Minute)), true)) {
		t.Error("Expected state checked 2h1m ago to be stale")
	}
	if s.IsLive(fresh(clock.now, false)) {
		t.Error("Expected inactive state not to be live")
	}
	if s.IsLive(nil) {
		t.Error("Expected nil record not to be live")
	}
}

func TestReinforcePreservesUnknownFields(t *testing.T) {
	t.Parallel()
	s, clock, project, _ := newTestStore(t)

	writeRaw(t, filepath.Join(project, "ralph-state.json"),
		`{"active": true, "started_at": "2025-03-01T11:00:00Z", "reinforcement_count": 2, "iteration": 7, "linked_prd": "prd.json"}`)

	rec, ok := s.Load(Ralph, "")
	if !ok {
		t.Fatal("Expected record")
	}
	state, err := s.Reinforce(rec, "")
	if err != nil {
		t.Fatalf("Reinforce failed: %v", err)
	}
	if state.ReinforcementCount != 3 {
		t.Errorf("Expected count 3, got %d", state.ReinforcementCount)
	}

	data, _ := os.ReadFile(filepath.Join(project, "ralph-state.json"))
	doc := gjson.ParseBytes(data)
	if doc.Get("iteration").Int() != 7 || doc.Get("linked_prd").String() != "prd.json" {
		t.Errorf("Expected unknown fields preserved, got %s", data)
	}
	if doc.Get("last_checked_at").String() != staleness.FormatTimestamp(clock.now) {
		t.Errorf("Expected refreshed last_checked_at, got %s", doc.Get("last_checked_at"))
	}
}

func TestReinforceWritesSessionScope(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	s.Activate(Ultrawork, "global", "")
	rec, _ := s.Load(Ultrawork, "sess-9")
	if _, err := s.Reinforce(rec, "sess-9"); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(project, "sessions", "sess-9", "ultrawork-state.json")); err != nil {
		t.Errorf("Expected reinforced state in session scope: %v", err)
	}
	global, _ := s.Load(Ultrawork, "")
	if global.State.ReinforcementCount != 0 {
		t.Errorf("Expected global record untouched, got count %d", global.State.ReinforcementCount)
	}
}

func TestCancelClearsAllScopes(t *testing.T) {
	t.Parallel()
	s, _, project, user := newTestStore(t)
	rec := &recorded{}
	s.recorder = rec

	s.Activate(Ralph, "a", "")
	s.Activate(Ultrawork, "b", "sess-1")
	s.Activate(Ecomode, "c", "sess-2")
	writeRaw(t, filepath.Join(project, "pipeline-state.json"), `{"active": true}`)
	writeRaw(t, filepath.Join(user, "autopilot-state.json"), `{"active": true}`)

	n, err := s.Cancel("sess-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Expected 4 records removed, got %d", n)
	}

	for _, path := range []string{
		filepath.Join(project, "ralph-state.json"),
		filepath.Join(project, "pipeline-state.json"),
		filepath.Join(project, "sessions", "sess-1", "ultrawork-state.json"),
		filepath.Join(user, "autopilot-state.json"),
	} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s to be removed", path)
		}
	}

	// Other sessions are not touched
	if _, err := os.Stat(filepath.Join(project, "sessions", "sess-2", "ecomode-state.json")); err != nil {
		t.Errorf("Expected other session state to remain: %v", err)
	}

	if rec.kinds[len(rec.kinds)-1] != EventCancelled {
		t.Errorf("Expected cancel to be journaled, got %v", rec.kinds)
	}
}

func TestSessionIDCannotEscape(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestStore(t)

	if _, err := s.Activate(Ralph, "p", "../../etc"); err == nil {
		t.Error("Expected error for session id with path separators")
	}
}

func TestHandlePrompt(t *testing.T) {
	t.Parallel()
	s, _, project, _ := newTestStore(t)

	out, err := s.HandlePrompt("ralph: make the tests pass", "sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Activated) != 2 || out.Activated[0] != Ralph || out.Activated[1] != Ultrawork {
		t.Errorf("Expected ralph and ultrawork activated, got %v", out.Activated)
	}
	if !strings.HasPrefix(out.Context, "[MAGIC KEYWORDS DETECTED: RALPH, ULTRAWORK]") {
		t.Errorf("Unexpected context: %q", out.Context)
	}
	if _, err := os.Stat(filepath.Join(project, "sessions", "sess-1", "ultrawork-state.json")); err != nil {
		t.Errorf("Expected implicit ultrawork state: %v", err)
	}

	out, _ = s.HandlePrompt("plan the rollout", "sess-1")
	if len(out.Activated) != 0 || !strings.HasPrefix(out.Context, "[MAGIC KEYWORD: PLAN]") {
		t.Errorf("Expected advisory plan without state, got %+v", out)
	}

	out, _ = s.HandlePrompt("cancelomd", "sess-1")
	if out.Cancelled != 2 || !strings.HasPrefix(out.Context, "[MAGIC KEYWORD: CANCEL]") {
		t.Errorf("Expected cancel to clear 2 records, got %+v", out)
	}

	out, _ = s.HandlePrompt("just a normal question", "sess-1")
	if out.Context != "" || len(out.Resolved) != 0 {
		t.Errorf("Expected no-op outcome, got %+v", out)
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestStore(t)

	s.Activate(Ecomode, "save tokens", "")
	statuses := s.Status("")

	if len(statuses) != len(Persistent) {
		t.Fatalf("Expected %d statuses, got %d", len(Persistent), len(statuses))
	}
	for _, st := range statuses {
		if st.Mode == Ecomode {
			if !st.Found || !st.Live || st.Scope != ScopeProject {
				t.Errorf("Expected live ecomode, got %+v", st)
			}
		} else if st.Found {
			t.Errorf("Expected %s to be absent", st.Mode)
		}
	}
}
