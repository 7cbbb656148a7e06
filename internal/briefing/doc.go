// Package briefing builds the context injected when a session starts.
//
// A new session may inherit work from a previous one. The briefing reports:
//
//   - a live ultrawork mode (with its start time and original prompt)
//   - a live ralph loop
//   - a live autopilot run
//   - incomplete items in .omd/todos.json
//
// Each finding renders as a <session-restore> block and the blocks are
// joined in that fixed order. When a session id is known only that
// session's mode records count, and a record naming another session is
// ignored; without one the project-global records are used.
//
// # Todos File
//
// The todos file is either an object with a "todos" array or a bare array.
// Every item whose status is not "completed" or "cancelled" is pending:
//
//	{"todos": [
//	  {"content": "wire the hook", "status": "in_progress"},
//	  {"content": "write tests", "status": "pending"}
//	]}
//
// # Usage
//
//	brief := briefing.Generate(states, cfg.ProjectStateDir(cwd), sessionID)
//	if !brief.Empty() {
//	    fmt.Println(brief.Render())
//	}
package briefing
