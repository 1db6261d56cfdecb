package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/posttls/internal/installer"
	"github.com/roach88/posttls/internal/postconf"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	ConfigFile    string // installer YAML config, optional
	ConfigDir     string // Postfix configuration directory
	Ctl           string // postfix control program
	ConfigUtility string // postconf executable

	// Test seams. Nil in production, set by tests to keep subprocesses
	// and PATH lookups out of the picture.
	runner   postconf.Runner
	lookPath func(string) error
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the posttls CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posttls",
		Short: "posttls - TLS configuration for Postfix",
		Long: "Configures Postfix to use installed certificates, disable weak\n" +
			"ciphers and protocols, and enforce per-domain TLS policies.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "installer config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Postfix configuration directory")
	cmd.PersistentFlags().StringVar(&opts.Ctl, "ctl", "", "postfix control program")
	cmd.PersistentFlags().StringVar(&opts.ConfigUtility, "config-utility", "", "postconf executable")

	// Add subcommands
	cmd.AddCommand(NewDeployCommand(opts))
	cmd.AddCommand(NewCompilePolicyCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// installerConfig builds the installer configuration from the config
// file (when given) overlaid with the global flags.
func (o *RootOptions) installerConfig() (installer.Config, error) {
	var cfg installer.Config
	if o.ConfigFile != "" {
		loaded, err := installer.LoadConfig(o.ConfigFile)
		if err != nil {
			return installer.Config{}, err
		}
		cfg = loaded
	}
	if o.ConfigDir != "" {
		cfg.ConfigDir = o.ConfigDir
	}
	if o.Ctl != "" {
		cfg.Ctl = o.Ctl
	}
	if o.ConfigUtility != "" {
		cfg.ConfigUtility = o.ConfigUtility
	}
	return cfg.WithDefaults(), nil
}

// installerOptions returns the test-seam options for constructing an
// installer. Empty in production.
func (o *RootOptions) installerOptions() []installer.Option {
	var opts []installer.Option
	if o.runner != nil {
		opts = append(opts, installer.WithRunner(o.runner))
	}
	if o.lookPath != nil {
		opts = append(opts, installer.WithLookPath(o.lookPath))
	}
	return opts
}

// newRunner returns the subprocess runner for commands that talk to the
// external tools without a full installer.
func (o *RootOptions) newRunner() postconf.Runner {
	if o.runner != nil {
		return o.runner
	}
	return postconf.ExecRunner{}
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
