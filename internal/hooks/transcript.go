package hooks

import (
	"bytes"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// LastAssistantText returns the text of the last assistant message in a
// JSONL transcript. When that message has several text parts the last one
// wins. Unparseable lines are skipped. It returns "" when there is no
// assistant message.
func LastAssistantText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}

	lines := bytes.Split(data, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		line := bytes.TrimSpace(lines[i])
		if len(line) == 0 || !gjson.ValidBytes(line) {
			continue
		}
		msg := gjson.ParseBytes(line)

		role := msg.Get("role")
		content := msg.Get("content")
		if !role.Exists() {
			role = msg.Get("message.role")
			content = msg.Get("message.content")
		}
		if role.String() != "assistant" {
			continue
		}

		if content.Type == gjson.String {
			return content.String(), nil
		}
		var text string
		content.ForEach(func(_, item gjson.Result) bool {
			if item.Get("type").String() == "text" {
				text = item.Get("text").String()
			}
			return true
		})
		return text, nil
	}
	return "", nil
}
