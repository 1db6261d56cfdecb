package postconf

import (
	"fmt"
	"log/slog"
	"strings"
)

// DefaultExecutable is the conventional name of the postconf utility.
const DefaultExecutable = "postconf"

// Client reads and writes Postfix configuration parameters by invoking
// postconf as a subprocess.
//
// Reads (Get, GetDefault) are immediate. Writes are staged in memory by
// Set and applied in a single batched edit invocation by Flush, so a
// deployment touches main.cf exactly once.
//
// INVARIANTS:
//   - Every invocation carries the same -c <root> arguments when a
//     configuration root is set, so reads and writes hit the same main.cf.
//   - Staged pairs survive a failed Flush so the caller can retry.
type Client struct {
	runner     Runner
	executable string
	configRoot string

	staged map[string]string
	order  []string // staged parameter names in first-Set order
}

// Option configures a Client.
type Option func(*Client)

// WithConfigRoot restricts every invocation to the Postfix configuration
// directory at root via postconf's -c flag.
func WithConfigRoot(root string) Option {
	return func(c *Client) {
		c.configRoot = root
	}
}

// WithRunner replaces the subprocess runner. Tests use this to avoid
// spawning real processes.
func WithRunner(r Runner) Option {
	return func(c *Client) {
		c.runner = r
	}
}

// New creates a Client for the given postconf executable.
func New(executable string, opts ...Option) *Client {
	c := &Client{
		runner:     ExecRunner{},
		executable: executable,
		staged:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ConfigRoot returns the configuration root, or "" when the tool's
// default configuration is in use.
func (c *Client) ConfigRoot() string {
	return c.configRoot
}

// Get returns the current value of the named parameter.
//
// The second return value is false when the parameter is unset: Postfix
// reports unset parameters as an empty value, and an empty trimmed value
// never carries meaning in main.cf.
func (c *Client) Get(name string) (string, bool, error) {
	return c.query(name, name)
}

// GetDefault returns postconf's built-in default for the named parameter.
func (c *Client) GetDefault(name string) (string, bool, error) {
	return c.query(name, "-d", name)
}

func (c *Client) query(name string, args ...string) (string, bool, error) {
	out, err := c.runner.Output(c.executable, c.baseArgs(args...)...)
	if err != nil {
		return "", false, &Error{
			Code:    ErrCodeQuery,
			Message: "postconf query failed",
			Param:   name,
			Err:     err,
		}
	}
	value, ok, err := parseOutput(out, name)
	if err != nil {
		return "", false, err
	}
	return value, ok, nil
}

// Set stages a parameter for writing. No subprocess is invoked until
// Flush. Staging the same name again replaces the previously staged
// value without changing its position in the batch.
func (c *Client) Set(name, value string) {
	if _, exists := c.staged[name]; !exists {
		c.order = append(c.order, name)
	}
	c.staged[name] = value
}

// Staged returns the number of staged, unflushed pairs.
func (c *Client) Staged() int {
	return len(c.staged)
}

// Reset drops every staged pair without writing it. The caller uses
// this to abandon a batch, typically after a failed Flush it does not
// intend to retry verbatim.
func (c *Client) Reset() {
	c.staged = make(map[string]string)
	c.order = nil
}

// Flush writes every staged pair in one postconf edit invocation.
//
// On success the staged set is cleared. On failure it is left intact,
// so a retried Flush carries the identical batch.
func (c *Client) Flush() error {
	if len(c.staged) == 0 {
		return nil
	}

	args := make([]string, 0, len(c.staged))
	for _, name := range c.order {
		args = append(args, fmt.Sprintf("%s=%s", name, c.staged[name]))
	}

	if err := c.runner.Run(c.executable, c.baseArgs(args...)...); err != nil {
		return &Error{
			Code:    ErrCodeCommit,
			Message: fmt.Sprintf("postconf edit failed for %d parameter(s)", len(c.staged)),
			Err:     err,
		}
	}

	slog.Info("postfix configuration updated",
		"parameters", len(c.staged),
		"config_root", c.configRoot,
	)
	c.staged = make(map[string]string)
	c.order = nil
	return nil
}

// baseArgs prepends the configuration root flags, if any, to args.
func (c *Client) baseArgs(args ...string) []string {
	if c.configRoot == "" {
		return args
	}
	return append([]string{"-c", c.configRoot}, args...)
}

// parseOutput extracts a parameter value from postconf query output.
//
// The contract is strict: exactly one line of the exact form
// "<name> = <value>". Anything else means we are talking to a postconf
// whose output format we do not understand, which is never retriable.
func parseOutput(output, name string) (string, bool, error) {
	expectedPrefix := name + " ="
	if strings.Count(output, "\n") != 1 || !strings.HasPrefix(output, expectedPrefix) {
		return "", false, &Error{
			Code:    ErrCodeFormat,
			Message: fmt.Sprintf("unexpected output %q from postconf", output),
			Param:   name,
			Output:  output,
		}
	}

	value := strings.TrimSpace(output[len(expectedPrefix):])
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}
