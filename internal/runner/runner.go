// Package runner executes job commands in a shell with a bounded runtime and
// classifies the result. It never retries and never touches job state.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cuongbtq/queuectl/internal/domain"
)

// waitDelay bounds how long Wait blocks on output pipes after the process is killed
const waitDelay = 2 * time.Second

// Result is the classified outcome of one command execution
type Result struct {
	Success  bool
	Output   string
	Reason   string
	ExitCode int
	Duration time.Duration
}

// Config holds runner configuration
type Config struct {
	Shell   string
	Timeout time.Duration
}

// Runner invokes commands through a shell
type Runner struct {
	shell   string
	timeout time.Duration
}

// New creates a runner; zero values fall back to "sh" and the 5 minute job timeout
func New(cfg Config) *Runner {
	r := &Runner{
		shell:   cfg.Shell,
		timeout: cfg.Timeout,
	}
	if r.shell == "" {
		r.shell = "sh"
	}
	if r.timeout <= 0 {
		r.timeout = domain.DefaultJobTimeout
	}
	return r
}

// Timeout returns the wall-clock bound applied to each command
func (r *Runner) Timeout() time.Duration {
	return r.timeout
}

// Run executes command and waits for it to exit or hit the timeout.
// ctx may carry an earlier deadline; cancelling it kills the process.
func (r *Runner) Run(ctx context.Context, command string) Result {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, r.shell, "-c", command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	result := Result{
		Output:   stdout.String(),
		Duration: time.Since(start),
		ExitCode: -1,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Reason = fmt.Sprintf("timed out after %s", r.timeout)
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Reason = exitReason(stderr.String(), exitErr.ExitCode())
		} else {
			result.Reason = fmt.Sprintf("launch error: %v", err)
		}
	}

	return result
}

func exitReason(stderr string, code int) string {
	if msg := strings.TrimSpace(stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("command exited with code %d", code)
}
