package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/posttls/internal/lifecycle"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the Postfix configuration",
		Long: `Ask Postfix to validate its own configuration.

Exits 0 when the configuration is valid, 2 when Postfix rejects it, and
1 when the check itself could not run.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, cmd)
		},
	}
	return cmd
}

func runCheck(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.installerConfig()
	if err != nil {
		return failure(formatter, err)
	}

	controller := lifecycle.NewController(cfg.Ctl,
		lifecycle.WithRunner(opts.newRunner()),
		lifecycle.WithConfigRoot(cfg.ConfigDir),
	)

	if err := controller.CheckConfig(); err != nil {
		return failure(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]bool{"valid": true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Configuration OK")
	return nil
}
