// Package execx runs external package-manager binaries on behalf of the
// ecosystem providers (lock-file creation, validation, and refresh).
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Exit codes reported for failure modes that have no real exit status.
const (
	ExitTimeout  = 124
	ExitNotFound = 127
)

// Result holds the outcome of one external command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	ExitCode int
}

// Runner executes external commands. The interface exists so provider tests
// can substitute a fake instead of requiring npm/go/poetry on PATH.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (Result, error)
}

// System is the default Runner backed by os/exec.
type System struct{}

// Run executes a command in dir, capturing output and duration.
// Timeouts map to exit code 124 and missing binaries to 127, following
// shell conventions, so callers can distinguish those without string checks.
func (System) Run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		res.ExitCode = 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() == context.DeadlineExceeded {
			res.ExitCode = ExitTimeout
		} else if errors.Is(err, exec.ErrNotFound) {
			res.ExitCode = ExitNotFound
		}
	}

	return res, err
}

var _ Runner = System{}
