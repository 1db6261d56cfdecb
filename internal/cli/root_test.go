package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/posttls/internal/installer"
	"github.com/roach88/posttls/internal/testutil"
)

// execute runs the command tree with the given arguments and returns
// captured stdout and stderr.
func execute(t *testing.T, opts *RootOptions, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func testOptions(r *testutil.ScriptedRunner) *RootOptions {
	return &RootOptions{
		runner:   r,
		lookPath: func(string) error { return nil },
	}
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "posttls", cmd.Use)
	assert.Contains(t, cmd.Long, "Postfix")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"deploy", "compile-policy", "status", "check"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "config-dir", "ctl", "config-utility"} {
		require.NotNil(t, cmd.PersistentFlags().Lookup(name), "flag %s should exist", name)
	}
}

func TestDeployCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	deployCmd, _, err := cmd.Find([]string{"deploy"})
	require.NoError(t, err)

	for _, name := range []string{"domain", "cert", "key", "chain", "fullchain", "key-type", "policy", "title", "temporary", "no-restart"} {
		require.NotNil(t, deployCmd.Flags().Lookup(name), "flag %s should exist", name)
	}

	keyTypeFlag := deployCmd.Flags().Lookup("key-type")
	assert.Equal(t, "rsa", keyTypeFlag.DefValue)
}

func TestCompilePolicyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	policyCmd, _, err := cmd.Find([]string{"compile-policy"})
	require.NoError(t, err)

	outputFlag := policyCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, _, err := execute(t, &RootOptions{}, "--format", "invalid", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestInstallerConfig_FlagOverrides(t *testing.T) {
	opts := &RootOptions{
		ConfigDir: "/etc/postfix",
		Ctl:       "/usr/sbin/postfix",
	}
	cfg, err := opts.installerConfig()
	require.NoError(t, err)
	assert.Equal(t, "/etc/postfix", cfg.ConfigDir)
	assert.Equal(t, "/usr/sbin/postfix", cfg.Ctl)
	assert.Equal(t, "postconf", cfg.ConfigUtility, "unset fields get defaults")
}

func TestInstallerConfig_MissingFile(t *testing.T) {
	opts := &RootOptions{ConfigFile: "/nonexistent/posttls.yaml"}
	_, err := opts.installerConfig()
	require.Error(t, err)
}

func TestInstallerOptions_EmptyInProduction(t *testing.T) {
	var opts RootOptions
	assert.Empty(t, opts.installerOptions())
	assert.IsType(t, []installer.Option(nil), opts.installerOptions())
}
