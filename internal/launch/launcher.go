// Package launch starts the agent process behind a background task.
//
// Spawning is fire and forget: the child runs in its own session with stdio
// discarded, and the caller never waits for it. Whether the agent actually
// did anything is learned later through progress heartbeats and completion
// hooks.
package launch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/qazz92/oh-my-droid/internal/config"
)

// ErrExecutorUnavailable is returned when the agent process cannot be
// started.
var ErrExecutorUnavailable = errors.New("agent executor unavailable")

// Executor starts an agent for a prompt.
type Executor interface {
	Spawn(ctx context.Context, agent, prompt string) error
}

// Spawner runs "<command> <args...> <agent> <prompt>" detached.
type Spawner struct {
	Command string
	Args    []string

	// Dir is the working directory of the child. Empty inherits ours.
	Dir string

	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

// NewSpawner creates a Spawner for the given command line prefix.
func NewSpawner(command string, args ...string) *Spawner {
	return &Spawner{
		Command:  command,
		Args:     args,
		lookPath: exec.LookPath,
		start:    (*exec.Cmd).Start,
	}
}

// New returns the executor described by cfg: a Spawner when enabled, Noop
// otherwise.
func New(cfg config.ExecutorConfig) Executor {
	if !cfg.Enabled || cfg.Command == "" {
		return Noop{}
	}
	return NewSpawner(cfg.Command, cfg.Args...)
}

// Spawn starts the agent and returns without waiting for it.
func (s *Spawner) Spawn(ctx context.Context, agent, prompt string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lookPath := s.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(s.Command)
	if err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrExecutorUnavailable, s.Command)
	}

	cmd := s.Cmd(agent, prompt)
	cmd.Path = path

	start := s.start
	if start == nil {
		start = (*exec.Cmd).Start
	}
	if err := start(cmd); err != nil {
		return fmt.Errorf("%w: %v", ErrExecutorUnavailable, err)
	}

	// The child is never waited on; release it so it is not left as a
	// zombie bound to this process.
	if cmd.Process != nil {
		cmd.Process.Release()
	}
	return nil
}

// Cmd builds the command without starting it.
func (s *Spawner) Cmd(agent, prompt string) *exec.Cmd {
	args := append(append([]string{}, s.Args...), agent, prompt)

	cmd := exec.Command(s.Command, args...)
	cmd.Dir = s.Dir
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	return cmd
}

// CheckInstalled reports whether the executor command is on PATH.
func (s *Spawner) CheckInstalled() error {
	if _, err := exec.LookPath(s.Command); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrExecutorUnavailable, s.Command)
	}
	return nil
}

// Noop records nothing and starts nothing.
type Noop struct{}

// Spawn does nothing.
func (Noop) Spawn(context.Context, string, string) error {
	return nil
}
