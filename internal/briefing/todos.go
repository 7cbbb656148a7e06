package briefing

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// CountIncompleteTodos counts items in the todos file whose status is not
// completed or cancelled. A missing file counts as zero.
func CountIncompleteTodos(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read todos file: %w", err)
	}

	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("todos file %s is not valid JSON", path)
	}

	doc := gjson.ParseBytes(data)
	items := doc
	if doc.IsObject() {
		items = doc.Get("todos")
	}
	if !items.IsArray() {
		return 0, nil
	}

	count := 0
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		switch item.Get("status").String() {
		case "completed", "cancelled":
		default:
			count++
		}
		return true
	})

	return count, nil
}
