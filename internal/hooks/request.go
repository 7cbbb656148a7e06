package hooks

import (
	"bytes"
	"errors"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/qazz92/oh-my-droid/pkg/types"
)

// ErrUnparseable is returned for a request body that is not a JSON object.
var ErrUnparseable = errors.New("unparseable hook input")

// ParseInput decodes a hook request. Several spellings are accepted for
// most fields:
//
//	prompt           prompt | message.content
//	cwd              cwd | directory (defaults to the working directory)
//	session id       session_id | sessionId
//	tool name        tool_name | toolName
//	transcript path  transcript_path | transcriptPath
//
// An empty body is treated as an empty object.
func ParseInput(data []byte) (types.HookInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		return types.HookInput{}, ErrUnparseable
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return types.HookInput{}, ErrUnparseable
	}

	in := types.HookInput{
		HookEventName:  first(doc, "hook_event_name", "hookEventName"),
		SessionID:      first(doc, "session_id", "sessionId"),
		Directory:      first(doc, "cwd", "directory"),
		Prompt:         prompt(doc),
		ToolName:       first(doc, "tool_name", "toolName"),
		TranscriptPath: first(doc, "transcript_path", "transcriptPath"),
	}
	if in.Directory == "" {
		in.Directory, _ = os.Getwd()
	}
	return in, nil
}

func first(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.Type == gjson.String {
			return v.String()
		}
	}
	return ""
}

// prompt reads prompt or message.content. A content array is flattened to
// its text parts.
func prompt(doc gjson.Result) string {
	if v := doc.Get("prompt"); v.Exists() {
		return v.String()
	}
	content := doc.Get("message.content")
	if !content.IsArray() {
		return content.String()
	}
	var parts []string
	content.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "text" {
			parts = append(parts, item.Get("text").String())
		}
		return true
	})
	return strings.Join(parts, "\n")
}
