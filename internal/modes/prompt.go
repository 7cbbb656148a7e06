package modes

import "log"

// Outcome is what HandlePrompt did with one prompt.
type Outcome struct {
	Detected  []Mode `json:"detected"`
	Resolved  []Mode `json:"resolved"`
	Activated []Mode `json:"activated,omitempty"`
	Cancelled int    `json:"cancelled,omitempty"`
	// Context is the skill invocation to inject, empty when nothing matched.
	Context string `json:"context,omitempty"`
}

// HandlePrompt runs detection and resolution over prompt, then cancels or
// activates mode state accordingly. State write failures are logged; the
// skill invocation is still returned.
func (s *StateStore) HandlePrompt(prompt, sessionID string) (*Outcome, error) {
	out := &Outcome{Detected: Detect(prompt)}
	if len(out.Detected) == 0 {
		return out, nil
	}
	out.Resolved = Resolve(out.Detected)

	if out.Resolved[0] == Cancel {
		n, err := s.Cancel(sessionID)
		if err != nil {
			log.Printf("warning: failed to clear mode state: %v", err)
		}
		out.Cancelled = n
	} else {
		activated, err := s.ActivateAll(out.Resolved, prompt, sessionID)
		if err != nil {
			log.Printf("warning: failed to activate modes: %v", err)
		}
		out.Activated = activated
	}

	text, err := SkillInvocation(out.Resolved, prompt)
	if err != nil {
		return out, err
	}
	out.Context = text
	return out, nil
}
