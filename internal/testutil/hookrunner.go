package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/qazz92/oh-my-droid/pkg/types"
)

// HookRunner runs a hook binary once per request, feeding the request on
// stdin and decoding the response from stdout.
type HookRunner struct {
	binary  string
	args    []string
	env     []string
	timeout time.Duration
}

// NewHookRunner creates a runner for binary. args are placed before the event
// name, so "omd" with args ["hook"] runs "omd hook <event>".
func NewHookRunner(binary string, args ...string) *HookRunner {
	return &HookRunner{
		binary:  binary,
		args:    args,
		timeout: 10 * time.Second,
	}
}

// SetEnv sets the environment of every hook process.
func (r *HookRunner) SetEnv(env []string) {
	r.env = env
}

// SetTimeout sets the per-invocation timeout.
func (r *HookRunner) SetTimeout(d time.Duration) {
	r.timeout = d
}

// Run invokes the hook for event with the given request body.
func (r *HookRunner) Run(event, body string) (*types.HookOutput, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	args := append(append([]string{}, r.args...), event)
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdin = bytes.NewBufferString(body)
	if r.env != nil {
		cmd.Env = r.env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, stdout.String(), fmt.Errorf("hook %s failed: %w (stderr: %s)", event, err, stderr.String())
	}

	var out types.HookOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, stdout.String(), fmt.Errorf("invalid hook output %q: %w", stdout.String(), err)
	}
	return &out, stdout.String(), nil
}

// Context returns the injected context of a response, or "".
func Context(out *types.HookOutput) string {
	if out == nil || out.HookSpecificOutput == nil {
		return ""
	}
	return out.HookSpecificOutput.AdditionalContext
}
