package postconf

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes external commands. The production implementation is
// ExecRunner; tests inject fakes so no package that builds on the adapter
// ever needs to spawn a real process.
//
// Both methods block until the subprocess exits. Exit status is the only
// failure channel: a nonzero exit is returned as a non-nil error.
type Runner interface {
	// Output runs the command and returns its captured stdout.
	Output(name string, args ...string) (string, error)

	// Run runs the command, discarding output. Only the exit status matters.
	Run(name string, args ...string) error
}

// ExecRunner invokes commands via os/exec.
//
// Timeout, when nonzero, bounds each invocation. A hung external tool
// otherwise hangs the caller, which matches the synchronous contract of
// this package; the timeout is the one escape hatch operators get.
type ExecRunner struct {
	Timeout time.Duration
}

func (r ExecRunner) Output(name string, args ...string) (string, error) {
	ctx, cancel := r.context()
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		slog.Debug("command failed",
			"command", name,
			"args", args,
			"stderr", stderr.String(),
			"error", err,
		)
		return "", err
	}
	return string(out), nil
}

func (r ExecRunner) Run(name string, args ...string) error {
	ctx, cancel := r.context()
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Run(); err != nil {
		slog.Debug("command failed",
			"command", name,
			"args", args,
			"error", err,
		)
		return err
	}
	return nil
}

func (r ExecRunner) context() (context.Context, context.CancelFunc) {
	if r.Timeout > 0 {
		return context.WithTimeout(context.Background(), r.Timeout)
	}
	return context.Background(), func() {}
}

// VerifyExecutable checks that the named program can be found on PATH
// (or at the given absolute path). Returns a MISSING_EXECUTABLE error
// when it cannot.
func VerifyExecutable(name string) error {
	if _, err := exec.LookPath(name); err != nil {
		return &Error{
			Code:    ErrCodeMissingExecutable,
			Message: "cannot find executable " + name,
			Err:     err,
		}
	}
	return nil
}
