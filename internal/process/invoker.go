// File: internal/process/invoker.go
// Description: Runs external programs to completion and captures their output.
// Everything that spawns a child process goes through an Invoker so callers can
// substitute a fake in tests.

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Allows mocking exec.CommandContext in tests.
var execCommandContext = exec.CommandContext

const waitDelay = 2 * time.Second

// Result is the outcome of a finished child process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Success reports whether the process exited with status 0.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Invoker starts a program, waits for it to exit and returns what it printed.
//
// A non-zero exit status is not an error; it is reported through
// Result.ExitCode. An error means the program could not be started or was
// stopped because ctx ended.
type Invoker interface {
	Invoke(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecInvoker is the os/exec backed Invoker.
type ExecInvoker struct {
	// Dir is the working directory of the child. Empty means the current one.
	Dir string
	// Env entries (KEY=VALUE) are appended to the inherited environment.
	Env []string
	// Timeout bounds a single invocation. Zero means no limit.
	Timeout time.Duration
}

// NewExecInvoker returns an ExecInvoker running children in dir.
func NewExecInvoker(dir string, timeout time.Duration) *ExecInvoker {
	return &ExecInvoker{Dir: dir, Timeout: timeout}
}

// Invoke runs name with args and blocks until the child has exited.
func (e *ExecInvoker) Invoke(ctx context.Context, name string, args ...string) (Result, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := execCommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	// A grandchild holding the output pipes open must not keep Wait blocked
	// after ctx is done.
	cmd.WaitDelay = waitDelay
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}
	if runErr == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s interrupted: %w", name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// ExitCode is -1 when the child was killed by a signal.
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	res.ExitCode = -1
	return res, fmt.Errorf("failed to run %s: %w", name, runErr)
}

// CommandLine renders name and args the way they would be typed in a shell,
// for log output only.
func CommandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
