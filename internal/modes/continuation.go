package modes

import (
	"fmt"
	"log"

	"github.com/qazz92/oh-my-droid/internal/assets"
)

const defaultPrompt = "Task in progress"

// Continuation is the outcome of one turn-boundary tick.
type Continuation struct {
	Modes  []Mode       `json:"modes"`
	Counts map[Mode]int `json:"counts"`
	Text   string       `json:"text"`
}

// Continue reinforces every live persistent mode and renders the reminder
// block. It returns nil when no mode is live.
func (s *StateStore) Continue(sessionID string) (*Continuation, error) {
	var (
		live      []Mode
		reminders []string
	)
	counts := make(map[Mode]int)

	for _, m := range Persistent {
		rec, ok := s.Load(m, sessionID)
		if !ok || !s.IsLive(rec) {
			continue
		}

		// On a failed write the reminder shows the count still on disk.
		state, err := s.Reinforce(rec, sessionID)
		if err != nil {
			log.Printf("warning: %v", err)
			state = rec.State
		}

		text, err := Reminder(m, state.OriginalPrompt, state.ReinforcementCount)
		if err != nil {
			return nil, err
		}

		live = append(live, m)
		counts[m] = state.ReinforcementCount
		reminders = append(reminders, text)
	}

	if len(live) == 0 {
		return nil, nil
	}

	text, err := assets.Render("persistent-mode", map[string]any{
		"Modes":     Names(live),
		"Reminders": reminders,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render continuation: %w", err)
	}

	return &Continuation{Modes: live, Counts: counts, Text: text}, nil
}

// Reminder renders the reminder for one live mode.
func Reminder(mode Mode, prompt string, count int) (string, error) {
	if !mode.Persistent() {
		return "", fmt.Errorf("no reminder for mode %q", mode)
	}
	if prompt == "" {
		prompt = defaultPrompt
	}
	text, err := assets.Render(string(mode), map[string]any{
		"Prompt": prompt,
		"Count":  count,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render %s reminder: %w", mode, err)
	}
	return text, nil
}

// SkillInvocation renders the instruction that tells the host to load the
// skills for the resolved modes.
func SkillInvocation(resolved []Mode, prompt string) (string, error) {
	switch len(resolved) {
	case 0:
		return "", nil
	case 1:
		return assets.Render("skill", map[string]any{
			"Skill":  string(resolved[0]),
			"Prompt": prompt,
		})
	default:
		return assets.Render("skills", map[string]any{
			"Skills": Names(resolved),
			"Prompt": prompt,
		})
	}
}
