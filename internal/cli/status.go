package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/posttls/internal/lifecycle"
	"github.com/roach88/posttls/internal/postconf"
	"github.com/roach88/posttls/internal/reconcile"
)

// StatusResult is the success payload of the status command.
type StatusResult struct {
	Running   bool   `json:"running"`
	Version   string `json:"version"`
	ConfigDir string `json:"config_dir"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show whether Postfix is running, its version and config directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.installerConfig()
	if err != nil {
		return failure(formatter, err)
	}

	runner := opts.newRunner()
	store := postconf.New(cfg.ConfigUtility,
		postconf.WithRunner(runner),
		postconf.WithConfigRoot(cfg.ConfigDir),
	)

	configDir := cfg.ConfigDir
	if configDir == "" {
		value, ok, err := store.Get(reconcile.ParamConfigDirectory)
		if err != nil {
			return failure(formatter, err)
		}
		if ok {
			configDir = value
		}
	}

	version, err := lifecycle.ProbeVersion(store)
	if err != nil {
		return failure(formatter, err)
	}

	controller := lifecycle.NewController(cfg.Ctl,
		lifecycle.WithRunner(runner),
		lifecycle.WithConfigRoot(cfg.ConfigDir),
	)

	result := StatusResult{
		Running:   controller.IsRunning(),
		Version:   version.String(),
		ConfigDir: configDir,
	}
	return outputStatusSuccess(formatter, result)
}

func outputStatusSuccess(formatter *OutputFormatter, result StatusResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	state := "not running"
	if result.Running {
		state = "running"
	}
	fmt.Fprintf(formatter.Writer, "Postfix: %s\n", state)
	fmt.Fprintf(formatter.Writer, "Version: %s\n", result.Version)
	fmt.Fprintf(formatter.Writer, "Configuration directory: %s\n", result.ConfigDir)
	return nil
}
