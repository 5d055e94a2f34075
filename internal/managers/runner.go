package managers

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// Runner executes external package-manager commands. Adapters depend on
// this interface so tests can substitute canned output for real
// processes.
type Runner interface {
	// Output runs the command and returns its stdout.
	Output(ctx context.Context, src pkgs.Source, op, name string, args ...string) (string, error)
	// Run runs the command for its side effect only.
	Run(ctx context.Context, src pkgs.Source, op, name string, args ...string) error
	// Look reports whether the named binary exists on PATH.
	Look(name string) bool
}

// ExecRunner runs commands with exec.CommandContext, bounding each call
// with a timeout so a hung command (for example one waiting on a
// privilege prompt) cannot stall a scan or the action queue.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner returns a runner with the given per-command timeout;
// zero means 60 seconds.
func NewExecRunner(timeout time.Duration) ExecRunner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return ExecRunner{Timeout: timeout}
}

func (r ExecRunner) Output(ctx context.Context, src pkgs.Source, op, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", classify(ctx, src, op, err, stderr.String())
	}
	return stdout.String(), nil
}

func (r ExecRunner) Run(ctx context.Context, src pkgs.Source, op, name string, args ...string) error {
	_, err := r.Output(ctx, src, op, name, args...)
	return err
}

func (r ExecRunner) Look(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// classify maps a raw exec failure onto a failure kind. pkexec exits
// 126 when the authentication dialog is dismissed and 127 when
// authorization fails.
func classify(ctx context.Context, src pkgs.Source, op string, err error, stderr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgs.NewError(pkgs.FailTimeout, src, op, err)
	}
	if errors.Is(err, exec.ErrNotFound) {
		return pkgs.NewError(pkgs.FailUnavailable, src, op, err)
	}

	var exit *exec.ExitError
	if errors.As(err, &exit) {
		if isPermissionFailure(exit.ExitCode(), stderr) {
			return pkgs.NewError(pkgs.FailPermission, src, op, trimmedErr(err, stderr))
		}
		return pkgs.NewError(pkgs.FailProcess, src, op, trimmedErr(err, stderr))
	}
	return pkgs.NewError(pkgs.FailProcess, src, op, err)
}

func isPermissionFailure(code int, stderr string) bool {
	if code == 126 || code == 127 {
		return true
	}
	s := strings.ToLower(stderr)
	return strings.Contains(s, "permission denied") ||
		strings.Contains(s, "not authorized") ||
		strings.Contains(s, "requires root") ||
		strings.Contains(s, "are you root")
}

// trimmedErr prefers the first stderr line over the bare exit status.
func trimmedErr(err error, stderr string) error {
	line := strings.TrimSpace(stderr)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if line == "" {
		return err
	}
	return errors.New(line)
}
