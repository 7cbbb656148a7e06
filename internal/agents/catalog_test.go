package agents

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAgentFile(t *testing.T) {
	content := []byte(`---
name: test-agent
description: A test agent
autonomy: medium
tools:
  - Read
  - Write
---

# Test Agent

This is the prompt content.

## Behaviors

- Be helpful
`)

	agent, body, err := parseAgentFile(content)
	if err != nil {
		t.Fatalf("parseAgentFile failed: %v", err)
	}

	if agent.Name != "test-agent" {
		t.Errorf("Expected name 'test-agent', got '%s'", agent.Name)
	}
	if agent.Description != "A test agent" {
		t.Errorf("Expected description 'A test agent', got '%s'", agent.Description)
	}
	if agent.Autonomy != "medium" {
		t.Errorf("Expected autonomy 'medium', got '%s'", agent.Autonomy)
	}
	if len(agent.Tools) != 2 {
		t.Errorf("Expected 2 tools, got %d", len(agent.Tools))
	}
	if body == "" || body[0] != '#' {
		t.Errorf("Expected trimmed body, got %q", body)
	}
}

func TestParseAgentFileNoFrontmatter(t *testing.T) {
	content := []byte(`# Test Agent

This is just a prompt without frontmatter.
`)

	agent, body, err := parseAgentFile(content)
	if err != nil {
		t.Fatalf("parseAgentFile failed: %v", err)
	}
	if agent.Name != "" {
		t.Errorf("Expected empty name, got '%s'", agent.Name)
	}
	if body != string(content) {
		t.Errorf("Expected body to be full content")
	}
}

func TestParseAgentFileUnterminated(t *testing.T) {
	if _, _, err := parseAgentFile([]byte("---\nname: x\n")); err == nil {
		t.Error("Expected error for unterminated frontmatter")
	}
}

func TestLoadBuiltins(t *testing.T) {
	t.Parallel()

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, name := range []string{"explorer", "executor-low", "executor-med", "executor-high", "hephaestus", "orchestrator"} {
		a, ok := c.Get(name)
		if !ok {
			t.Errorf("Expected built-in agent %s", name)
			continue
		}
		if a.Source != SourceBuiltin {
			t.Errorf("Expected %s to be built in, got %s", name, a.Source)
		}
		if a.Description == "" {
			t.Errorf("Expected %s to have a description", name)
		}
	}

	list := c.List()
	for i := 1; i < len(list); i++ {
		if list[i-1].Name >= list[i].Name {
			t.Errorf("Expected sorted list, got %s before %s", list[i-1].Name, list[i].Name)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Parallel()

	global := t.TempDir()
	project := t.TempDir()

	write := func(dir, name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(global, "explorer.md", "---\nname: explorer\ndescription: Global explorer\n---\nbody\n")
	write(global, "reviewer-lite.md", "---\ndescription: Light reviewer\n---\nbody\n")
	write(project, "explorer.md", "---\nname: explorer\ndescription: Project explorer\n---\nbody\n")
	write(project, "broken.md", "---\nname: [\n---\n")
	write(project, "notes.txt", "ignored")

	c, err := Load(global, project, filepath.Join(project, "missing"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	a, _ := c.Get("explorer")
	if a.Description != "Project explorer" {
		t.Errorf("Expected project override, got '%s'", a.Description)
	}
	if a.Source != SourceFile || a.Path != filepath.Join(project, "explorer.md") {
		t.Errorf("Unexpected source %s at %s", a.Source, a.Path)
	}

	if !c.Has("reviewer-lite") {
		t.Error("Expected agent named after its file")
	}
	if c.Has("broken") || c.Has("notes") {
		t.Error("Expected broken and non-markdown files to be skipped")
	}
}
