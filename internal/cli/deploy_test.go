package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/posttls/internal/reconcile"
	"github.com/roach88/posttls/internal/testutil"
)

// deployReadParams are the parameters a deploy reads before proposing.
var deployReadParams = []string{
	reconcile.ParamCertFile,
	reconcile.ParamKeyFile,
	reconcile.ParamMandatoryProtocols,
	reconcile.ParamProtocols,
	reconcile.ParamLogLevel,
	reconcile.ParamReceivedHeader,
	reconcile.ParamCiphers,
	reconcile.ParamMandatoryCiphers,
	reconcile.ParamEECDHGrade,
	reconcile.ParamClientSecurity,
	reconcile.ParamServerSecurity,
	reconcile.ParamCAFile,
}

// scriptDeployFlow registers every subprocess response a full deploy
// against the given configuration root needs.
func scriptDeployFlow(r *testutil.ScriptedRunner, root string) {
	r.Respond("postfix -c "+root+" check", testutil.Response{})
	r.Respond("postconf -c "+root+" -d mail_version",
		testutil.Response{Stdout: "mail_version = 3.4.0\n"})

	for _, name := range deployReadParams {
		r.Respond(fmt.Sprintf("postconf -c %s %s", root, name),
			testutil.Response{Stdout: name + " =\n"})
	}

	r.RespondPrefix("postconf -c "+root+" "+reconcile.ParamCertFile+"=", testutil.Response{})
	r.Respond("postfix -c "+root+" status", testutil.Response{})
	r.Respond("postfix -c "+root+" reload", testutil.Response{})
}

func deployArgs(dir string, extra ...string) []string {
	args := []string{
		"deploy",
		"--config-dir", dir,
		"--domain", "example.com",
		"--key", "/etc/letsencrypt/live/example.com/privkey.pem",
		"--fullchain", "/etc/letsencrypt/live/example.com/fullchain.pem",
	}
	return append(args, extra...)
}

func TestDeploy_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewScriptedRunner()
	scriptDeployFlow(r, dir)

	out, _, err := execute(t, testOptions(r), deployArgs(dir)...)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Deployed TLS configuration for example.com")
	assert.Contains(t, out, "Set smtpd_tls_cert_file to /etc/letsencrypt/live/example.com/fullchain.pem")
	assert.Contains(t, out, "Postfix reloaded")
}

func TestDeploy_NoRestart(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewScriptedRunner()
	scriptDeployFlow(r, dir)

	out, _, err := execute(t, testOptions(r), deployArgs(dir, "--no-restart")...)
	require.NoError(t, err)
	assert.NotContains(t, out, "Postfix reloaded")

	for _, line := range r.CommandLines() {
		assert.NotContains(t, line, "reload")
		assert.NotContains(t, line, "status")
	}
}

func TestDeploy_MissingRequiredFlags(t *testing.T) {
	_, _, err := execute(t, testOptions(testutil.NewScriptedRunner()),
		"deploy", "--domain", "example.com")
	require.Error(t, err)
}

func TestDeploy_MisconfiguredServerExitsTwo(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewScriptedRunner()
	r.Respond("postfix -c "+dir+" check",
		testutil.Response{Err: errors.New("exit status 1")})

	out, _, err := execute(t, testOptions(r), deployArgs(dir)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "MISCONFIGURATION_ERROR")
}

func TestDeploy_CommitFailureExitsOne(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewScriptedRunner()
	scriptDeployFlowFailingEdit(r, dir)

	out, _, err := execute(t, testOptions(r), deployArgs(dir)...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "COMMIT_ERROR")
}

// scriptDeployFlowFailingEdit is scriptDeployFlow with the batched edit
// failing.
func scriptDeployFlowFailingEdit(r *testutil.ScriptedRunner, root string) {
	r.Respond("postfix -c "+root+" check", testutil.Response{})
	r.Respond("postconf -c "+root+" -d mail_version",
		testutil.Response{Stdout: "mail_version = 3.4.0\n"})
	for _, name := range deployReadParams {
		r.Respond(fmt.Sprintf("postconf -c %s %s", root, name),
			testutil.Response{Stdout: name + " =\n"})
	}
	r.RespondPrefix("postconf -c "+root+" "+reconcile.ParamCertFile+"=",
		testutil.Response{Err: errors.New("exit status 1")})
}

func TestDeploy_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	r := testutil.NewScriptedRunner()
	scriptDeployFlow(r, dir)

	out, _, err := execute(t, testOptions(r), append([]string{"--format", "json"}, deployArgs(dir)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"domain":"example.com"`)
	assert.Contains(t, out, `"restarted":true`)
}
