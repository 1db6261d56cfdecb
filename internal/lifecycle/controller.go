package lifecycle

import (
	"log/slog"

	"github.com/roach88/posttls/internal/postconf"
)

// DefaultExecutable is the conventional name of the postfix control
// program.
const DefaultExecutable = "postfix"

// Subcommands of the control program.
const (
	subcommandStatus = "status"
	subcommandReload = "reload"
	subcommandStart  = "start"
	subcommandStop   = "stop"
	subcommandCheck  = "check"
)

// Controller drives the postfix control program. It holds no persisted
// state; every operation is a fresh subprocess whose exit status is the
// entire answer.
type Controller struct {
	runner     postconf.Runner
	executable string
	configRoot string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithConfigRoot restricts every subcommand to the configuration
// directory at root, matching the adapter's -c propagation.
func WithConfigRoot(root string) ControllerOption {
	return func(c *Controller) {
		c.configRoot = root
	}
}

// WithRunner replaces the subprocess runner.
func WithRunner(r postconf.Runner) ControllerOption {
	return func(c *Controller) {
		c.runner = r
	}
}

// NewController creates a Controller for the given control program.
func NewController(executable string, opts ...ControllerOption) *Controller {
	c := &Controller{
		runner:     postconf.ExecRunner{},
		executable: executable,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsRunning probes the agent with the status subcommand. A failing
// status is not an error condition, only a "not running" signal.
func (c *Controller) IsRunning() bool {
	return c.run(subcommandStatus) == nil
}

// Reload instructs a running agent to re-read its configuration.
// Fails if the agent is not running.
func (c *Controller) Reload() error {
	if err := c.run(subcommandReload); err != nil {
		return &Error{
			Code:    ErrCodeRestart,
			Message: "Postfix failed to reload its configuration",
			Step:    subcommandReload,
			Err:     err,
		}
	}
	return nil
}

// Start stops the agent, then starts it.
//
// The stop step runs even though the agent is presumably not running: a
// failing stop can indicate a broken control path, and that is treated
// as fatal rather than ignored.
func (c *Controller) Start() error {
	if err := c.run(subcommandStop); err != nil {
		return &Error{
			Code:    ErrCodeRestart,
			Message: "Postfix failed to stop",
			Step:    subcommandStop,
			Err:     err,
		}
	}
	if err := c.run(subcommandStart); err != nil {
		return &Error{
			Code:    ErrCodeRestart,
			Message: "Postfix failed to start",
			Step:    subcommandStart,
			Err:     err,
		}
	}
	return nil
}

// Restart reloads a running agent or starts a stopped one.
func (c *Controller) Restart() error {
	slog.Info("reloading Postfix configuration",
		"config_root", c.configRoot,
	)
	if c.IsRunning() {
		return c.Reload()
	}
	return c.Start()
}

// CheckConfig asks the agent to validate its own configuration. A
// nonzero exit means the configuration content is bad, which is
// distinct from a lifecycle failure.
func (c *Controller) CheckConfig() error {
	if err := c.run(subcommandCheck); err != nil {
		return &Error{
			Code:    ErrCodeMisconfiguration,
			Message: "Postfix failed internal configuration check",
			Step:    subcommandCheck,
			Err:     err,
		}
	}
	return nil
}

func (c *Controller) run(subcommand string) error {
	args := []string{subcommand}
	if c.configRoot != "" {
		args = append([]string{"-c", c.configRoot}, args...)
	}
	return c.runner.Run(c.executable, args...)
}
