// Package procexec runs external tools with bounded timeouts, secret
// stdin delivery, and guaranteed termination and reaping. Every child
// sealbox spawns (cipher, scrubber, eraser, token tool, notifier) goes
// through Run so no code path can leak a zombie or pass a secret on
// argv.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/sealbox/sealbox/internal/errs"
	"github.com/sealbox/sealbox/internal/log"
)

const (
	// maxCapturedBytes caps stdout/stderr capture from child processes.
	maxCapturedBytes = 64 * 1024

	// terminationGracePeriod is the wait after SIGTERM before SIGKILL.
	terminationGracePeriod = 5 * time.Second
)

// Spec describes one invocation. Stdin is written to the child's stdin
// pipe and is never echoed into argv, logs or errors.
type Spec struct {
	Command string
	Args    []string
	Stdin   []byte
	Timeout time.Duration
	Dir     string
}

// Result captures a completed (or reaped) invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

// Runner executes Specs. The zero value is not usable; call New.
type Runner struct {
	logger *slog.Logger
}

func New() *Runner {
	return &Runner{logger: log.WithComponent("procexec")}
}

// Available reports whether command resolves on PATH.
func (r *Runner) Available(command string) bool {
	_, err := exec.LookPath(command)
	return err == nil
}

// Run executes spec. On timeout or context cancellation the child is
// sent SIGTERM, then SIGKILL after a grace period, and always reaped
// before Run returns; the error wraps errs.ErrProcess (or
// errs.ErrCancelled for caller cancellation). A non-zero exit is not an
// error here; callers interpret exit codes per their tool's contract.
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Command == "" {
		return Result{}, fmt.Errorf("%w: empty command", errs.ErrProcess)
	}
	if _, err := exec.LookPath(spec.Command); err != nil {
		return Result{}, fmt.Errorf("%w: tool %q not found", errs.ErrProcess, spec.Command)
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	// Termination is managed here rather than by exec.CommandContext so
	// the child gets a SIGTERM grace period before SIGKILL.
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Result{}, fmt.Errorf("%w: create stdin pipe: %v", errs.ErrProcess, err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("spawning tool", "command", spec.Command, "timeout", timeout)

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return Result{}, fmt.Errorf("%w: start %q: %v", errs.ErrProcess, spec.Command, err)
	}

	writeErr := make(chan error, 1)
	go func() {
		defer stdin.Close()
		if len(spec.Stdin) == 0 {
			writeErr <- nil
			return
		}
		_, err := stdin.Write(spec.Stdin)
		writeErr <- err
	}()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		r.terminate(cmd, waitErr)
		return Result{
			ExitCode: -1,
			Stdout:   capped(stdout.Bytes()),
			Stderr:   capped(stderr.Bytes()),
		}, fmt.Errorf("%w: %q interrupted", errs.ErrCancelled, spec.Command)

	case <-timeoutTimer.C:
		r.logger.Warn("tool timed out, terminating", "command", spec.Command, "timeout", timeout)
		r.terminate(cmd, waitErr)
		return Result{
			ExitCode: -1,
			Stdout:   capped(stdout.Bytes()),
			Stderr:   capped(stderr.Bytes()),
			TimedOut: true,
		}, fmt.Errorf("%w: %q timed out after %s", errs.ErrProcess, spec.Command, timeout)

	case err := <-waitErr:
		if werr := <-writeErr; werr != nil && !errors.Is(werr, syscall.EPIPE) {
			return Result{}, fmt.Errorf("%w: write stdin to %q: %v", errs.ErrProcess, spec.Command, werr)
		}

		res := Result{
			ExitCode: 0,
			Stdout:   capped(stdout.Bytes()),
			Stderr:   capped(stderr.Bytes()),
		}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
			} else {
				return res, fmt.Errorf("%w: wait for %q: %v", errs.ErrProcess, spec.Command, err)
			}
		}
		return res, nil
	}
}

// terminate sends SIGTERM, waits out the grace period, escalates to
// SIGKILL, and blocks until the child is reaped.
func (r *Runner) terminate(cmd *exec.Cmd, waitErr <-chan error) {
	if cmd.Process != nil {
		if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
			r.logger.Debug("SIGTERM failed", "error", err)
		}
	}

	grace := time.NewTimer(terminationGracePeriod)
	defer grace.Stop()

	select {
	case <-waitErr:
	case <-grace.C:
		if cmd.Process != nil {
			if err := cmd.Process.Kill(); err != nil {
				r.logger.Debug("SIGKILL failed", "error", err)
			}
		}
		<-waitErr
	}
}

func capped(b []byte) []byte {
	if len(b) > maxCapturedBytes {
		return b[:maxCapturedBytes]
	}
	return b
}
