// Package agents lists the droids a background task can be launched with.
// Built-in droids ship embedded in the binary; markdown files in
// ~/.omd/agents and <project>/.omd/agents add to or override them.
package agents

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qazz92/oh-my-droid/internal/assets"
)

// Source says where an agent definition came from.
type Source string

const (
	SourceBuiltin Source = "builtin"
	SourceFile    Source = "file"
)

// Agent is one droid definition.
type Agent struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Autonomy    string   `yaml:"autonomy" json:"autonomy,omitempty"`
	Tools       []string `yaml:"tools" json:"tools,omitempty"`
	Prompt      string   `yaml:"-" json:"prompt,omitempty"` // markdown body
	Source      Source   `yaml:"-" json:"source"`
	Path        string   `yaml:"-" json:"path,omitempty"`
}

// Catalog holds every known agent by name.
type Catalog struct {
	agents map[string]*Agent
}

// Load builds a catalog from the built-in droids, then each directory in
// order. Later definitions replace earlier ones with the same name. Missing
// directories are skipped; unreadable files are logged and skipped.
func Load(dirs ...string) (*Catalog, error) {
	c := &Catalog{agents: make(map[string]*Agent)}

	builtins, err := fs.ReadDir(assets.Agents, "agents")
	if err != nil {
		return nil, fmt.Errorf("failed to read built-in agents: %w", err)
	}
	for _, e := range builtins {
		p := path.Join("agents", e.Name())
		content, err := fs.ReadFile(assets.Agents, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read built-in agent %s: %w", e.Name(), err)
		}
		agent, err := parseAgent(e.Name(), content)
		if err != nil {
			return nil, fmt.Errorf("invalid built-in agent %s: %w", e.Name(), err)
		}
		agent.Source = SourceBuiltin
		c.agents[agent.Name] = agent
	}

	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
				continue
			}
			p := filepath.Join(dir, e.Name())
			agent, err := loadAgentFile(p)
			if err != nil {
				log.Printf("warning: skipping agent %s: %v", p, err)
				continue
			}
			c.agents[agent.Name] = agent
		}
	}

	return c, nil
}

// Get returns the agent with the given name.
func (c *Catalog) Get(name string) (*Agent, bool) {
	a, ok := c.agents[name]
	return a, ok
}

// Has reports whether name is a known agent.
func (c *Catalog) Has(name string) bool {
	_, ok := c.agents[name]
	return ok
}

// List returns every agent sorted by name.
func (c *Catalog) List() []*Agent {
	out := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// loadAgentFile parses an agent markdown file with YAML frontmatter
func loadAgentFile(p string) (*Agent, error) {
	content, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	agent, err := parseAgent(filepath.Base(p), content)
	if err != nil {
		return nil, err
	}
	agent.Source = SourceFile
	agent.Path = p
	return agent, nil
}

// parseAgent parses a definition. The file name stands in for a missing
// name field.
func parseAgent(fileName string, content []byte) (*Agent, error) {
	agent, body, err := parseAgentFile(content)
	if err != nil {
		return nil, err
	}
	if agent.Name == "" {
		agent.Name = strings.TrimSuffix(fileName, ".md")
	}
	agent.Prompt = body
	return agent, nil
}

// parseAgentFile parses YAML frontmatter and markdown body
func parseAgentFile(content []byte) (*Agent, string, error) {
	reader := bufio.NewReader(bytes.NewReader(content))

	firstLine, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, "", err
	}

	if strings.TrimSpace(firstLine) != "---" {
		// No frontmatter, entire content is the prompt
		return &Agent{}, string(content), nil
	}

	var frontmatter strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if strings.TrimSpace(line) == "---" {
			break
		}
		if err != nil {
			return nil, "", fmt.Errorf("unterminated frontmatter: %w", err)
		}
		frontmatter.WriteString(line)
	}

	var agent Agent
	if err := yaml.Unmarshal([]byte(frontmatter.String()), &agent); err != nil {
		return nil, "", fmt.Errorf("invalid frontmatter: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", err
	}
	return &agent, strings.TrimSpace(string(body)), nil
}
