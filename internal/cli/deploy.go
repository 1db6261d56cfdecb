package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/posttls/internal/installer"
)

// DeployOptions holds flags for the deploy command.
type DeployOptions struct {
	*RootOptions
	Domain        string
	CertPath      string
	KeyPath       string
	ChainPath     string
	FullchainPath string
	KeyType       string
	PolicyFile    string
	Title         string
	Temporary     bool
	NoRestart     bool
}

// DeployResult is the success payload of a deploy.
type DeployResult struct {
	Domain    string   `json:"domain"`
	ConfigDir string   `json:"config_dir"`
	Version   string   `json:"version"`
	Changes   []string `json:"changes"`
	Restarted bool     `json:"restarted"`
}

// NewDeployCommand creates the deploy command.
func NewDeployCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeployOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy TLS configuration for a domain",
		Long: `Deploy certificate paths and hardened TLS settings to Postfix.

All changes are proposed first and committed in a single batch; a failed
commit leaves the live configuration untouched. With a policy document
configured, the per-domain TLS policy table is compiled and installed in
the same deployment.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Domain, "domain", "", "domain the certificate covers")
	cmd.Flags().StringVar(&opts.CertPath, "cert", "", "certificate path")
	cmd.Flags().StringVar(&opts.KeyPath, "key", "", "private key path")
	cmd.Flags().StringVar(&opts.ChainPath, "chain", "", "issuer chain path")
	cmd.Flags().StringVar(&opts.FullchainPath, "fullchain", "", "certificate plus chain path")
	cmd.Flags().StringVar(&opts.KeyType, "key-type", installer.KeyTypeRSA, "certificate key type (rsa|ecdsa)")
	cmd.Flags().StringVar(&opts.PolicyFile, "policy", "", "TLS policy document to compile and install")
	cmd.Flags().StringVar(&opts.Title, "title", "", "checkpoint title")
	cmd.Flags().BoolVar(&opts.Temporary, "temporary", false, "mark the checkpoint temporary")
	cmd.Flags().BoolVar(&opts.NoRestart, "no-restart", false, "do not reload Postfix after saving")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("fullchain")

	return cmd
}

func runDeploy(opts *DeployOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.installerConfig()
	if err != nil {
		return failure(formatter, err)
	}
	if opts.PolicyFile != "" {
		cfg.PolicyFile = opts.PolicyFile
	}

	inst := installer.New(cfg, opts.installerOptions()...)
	if err := inst.Prepare(); err != nil {
		return failure(formatter, err)
	}
	defer inst.Close()

	formatter.VerboseLog("Configuration directory: %s", inst.ConfigDir())
	formatter.VerboseLog("Postfix version: %s", inst.Version())

	if err := inst.Deploy(installer.Deployment{
		Domain:        opts.Domain,
		CertPath:      opts.CertPath,
		KeyPath:       opts.KeyPath,
		ChainPath:     opts.ChainPath,
		FullchainPath: opts.FullchainPath,
		KeyType:       opts.KeyType,
	}); err != nil {
		return failure(formatter, err)
	}

	changes := inst.Engine().Notes()

	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("Deploy TLS configuration for %s", opts.Domain)
	}
	if err := inst.Save(title, opts.Temporary); err != nil {
		return failure(formatter, err)
	}

	if !opts.NoRestart {
		if err := inst.Restart(); err != nil {
			return failure(formatter, err)
		}
	}

	result := DeployResult{
		Domain:    opts.Domain,
		ConfigDir: inst.ConfigDir(),
		Version:   inst.Version().String(),
		Changes:   changes,
		Restarted: !opts.NoRestart,
	}
	return outputDeploySuccess(formatter, result)
}

func outputDeploySuccess(formatter *OutputFormatter, result DeployResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Deployed TLS configuration for %s\n", result.Domain)
	fmt.Fprintf(formatter.Writer, "  Configuration directory: %s\n", result.ConfigDir)
	if len(result.Changes) == 0 {
		fmt.Fprintln(formatter.Writer, "  No changes required")
	} else {
		fmt.Fprintf(formatter.Writer, "  %d change(s):\n", len(result.Changes))
		for _, change := range result.Changes {
			fmt.Fprintf(formatter.Writer, "    %s\n", change)
		}
	}
	if result.Restarted {
		fmt.Fprintln(formatter.Writer, "  Postfix reloaded")
	}
	return nil
}
