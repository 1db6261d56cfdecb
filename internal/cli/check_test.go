package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/posttls/internal/testutil"
)

func TestCheck_Valid(t *testing.T) {
	r := testutil.NewScriptedRunner()
	r.Respond("postfix check", testutil.Response{})

	out, _, err := execute(t, testOptions(r), "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration OK")
}

func TestCheck_InvalidConfigExitsTwo(t *testing.T) {
	r := testutil.NewScriptedRunner()
	r.Respond("postfix check", testutil.Response{Err: errors.New("exit status 1")})

	out, _, err := execute(t, testOptions(r), "check")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "MISCONFIGURATION_ERROR")
}

func TestCheck_UsesConfigDirFlag(t *testing.T) {
	r := testutil.NewScriptedRunner()
	r.Respond("postfix -c /etc/postfix-alt check", testutil.Response{})

	_, _, err := execute(t, testOptions(r), "check", "--config-dir", "/etc/postfix-alt")
	require.NoError(t, err)
	require.Len(t, r.Calls(), 1)
	assert.Equal(t, "postfix -c /etc/postfix-alt check", r.Calls()[0].Command())
}

func TestCheck_JSONOutput(t *testing.T) {
	r := testutil.NewScriptedRunner()
	r.Respond("postfix check", testutil.Response{})

	out, _, err := execute(t, testOptions(r), "--format", "json", "check")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"valid":true}}`, out)
}
