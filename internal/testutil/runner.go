// Package testutil provides fakes shared by tests across packages.
//
// The central fake is ScriptedRunner, a postconf.Runner that replays
// canned responses instead of spawning subprocesses. Every package built
// on the adapter (reconcile, lifecycle, installer, cli) tests against it.
package testutil

import (
	"fmt"
	"strings"
)

// Call records one invocation observed by a ScriptedRunner.
type Call struct {
	Name string
	Args []string
}

// Command returns the full command line as a single string, convenient
// for assertions.
func (c Call) Command() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Response is a canned subprocess outcome.
type Response struct {
	Stdout string
	Err    error
}

// ScriptedRunner is a postconf.Runner that matches invocations against
// registered responses and records every call for later assertion.
//
// Matching is by full command line (name plus all arguments joined with
// spaces). Unmatched invocations return an error so tests fail loudly on
// unexpected subprocess use rather than silently succeeding.
type ScriptedRunner struct {
	responses map[string]Response
	prefixes  []prefixResponse
	calls     []Call
}

type prefixResponse struct {
	prefix string
	resp   Response
}

// NewScriptedRunner creates an empty runner. Register expectations with
// Respond before use.
func NewScriptedRunner() *ScriptedRunner {
	return &ScriptedRunner{responses: make(map[string]Response)}
}

// Respond registers the outcome for an exact command line.
//
// Example:
//
//	r.Respond("postconf -c /etc/postfix mail_version", testutil.Response{Stdout: "mail_version = 3.4.0\n"})
func (r *ScriptedRunner) Respond(commandLine string, resp Response) {
	r.responses[commandLine] = resp
}

// RespondPrefix registers the outcome for any command line starting
// with prefix. Exact matches registered with Respond win; prefixes are
// tried in registration order. Useful for batched edit invocations
// where asserting the full argument list would duplicate the test's
// subject logic.
func (r *ScriptedRunner) RespondPrefix(prefix string, resp Response) {
	r.prefixes = append(r.prefixes, prefixResponse{prefix: prefix, resp: resp})
}

// Output implements postconf.Runner.
func (r *ScriptedRunner) Output(name string, args ...string) (string, error) {
	call := Call{Name: name, Args: args}
	r.calls = append(r.calls, call)

	if resp, ok := r.responses[call.Command()]; ok {
		return resp.Stdout, resp.Err
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(call.Command(), p.prefix) {
			return p.resp.Stdout, p.resp.Err
		}
	}
	return "", fmt.Errorf("unexpected command: %s", call.Command())
}

// Run implements postconf.Runner.
func (r *ScriptedRunner) Run(name string, args ...string) error {
	_, err := r.Output(name, args...)
	return err
}

// Calls returns every invocation observed, in order.
func (r *ScriptedRunner) Calls() []Call {
	return r.calls
}

// CommandLines returns the observed invocations as full command lines.
func (r *ScriptedRunner) CommandLines() []string {
	lines := make([]string, len(r.calls))
	for i, c := range r.calls {
		lines[i] = c.Command()
	}
	return lines
}
