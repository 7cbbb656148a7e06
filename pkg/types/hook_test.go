package types

import (
	"encoding/json"
	"testing"
)

func TestSilentEncoding(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Silent())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"continue":true,"suppressOutput":true}` {
		t.Errorf("Unexpected encoding: %s", data)
	}
}

func TestWithContextEncoding(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(WithContext("Stop", "keep going"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"continue":true,"hookSpecificOutput":{"hookEventName":"Stop","additionalContext":"keep going"}}`
	if string(data) != want {
		t.Errorf("Expected %s, got %s", want, data)
	}
}
