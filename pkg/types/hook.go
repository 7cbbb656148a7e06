package types

// HookInput is the normalized hook request. The host sends several
// spellings of the same field; see hooks.ParseInput for the accepted ones.
type HookInput struct {
	HookEventName  string `json:"hook_event_name,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	Directory      string `json:"cwd,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
}

// HookOutput is written to stdout by every hook invocation.
type HookOutput struct {
	Continue           bool                `json:"continue"`
	SuppressOutput     bool                `json:"suppressOutput,omitempty"`
	HookSpecificOutput *HookSpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// HookSpecificOutput carries context injected into the conversation.
type HookSpecificOutput struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext"`
}

// Silent is the default response: keep going, show nothing.
func Silent() HookOutput {
	return HookOutput{Continue: true, SuppressOutput: true}
}

// WithContext returns a response injecting context for the given event.
func WithContext(eventName, context string) HookOutput {
	return HookOutput{
		Continue: true,
		HookSpecificOutput: &HookSpecificOutput{
			HookEventName:     eventName,
			AdditionalContext: context,
		},
	}
}
