package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/posttls/internal/policy"
)

// CompilePolicyOptions holds flags for the compile-policy command.
type CompilePolicyOptions struct {
	*RootOptions
	Output string // output file path; empty prints to stdout
}

// CompilePolicyResult is the success payload of compile-policy.
type CompilePolicyResult struct {
	Lines       []string `json:"lines"`
	Diagnostics []string `json:"diagnostics,omitempty"`
	Output      string   `json:"output,omitempty"`
}

// NewCompilePolicyCommand creates the compile-policy command.
func NewCompilePolicyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompilePolicyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile-policy <policy-file>",
		Short: "Compile a TLS policy document to a Postfix policy table",
		Long: `Compile a TLS policy document to Postfix tls_policy table lines.

Each address domain entry compiles to exactly one line. Conditions that
cannot be expressed (unknown minimum TLS versions, missing MX policies,
extra accepted MX domains) are reported as diagnostics and never fail
the compilation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompilePolicy(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the table to a file instead of stdout")

	return cmd
}

func runCompilePolicy(opts *CompilePolicyOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	list, err := policy.Load(path)
	if err != nil {
		return failure(formatter, err)
	}

	formatter.VerboseLog("Compiling %d address domain(s)", len(list.Domains))

	result := policy.Compile(list)
	for _, d := range result.Diagnostics {
		fmt.Fprintf(formatter.GetErrWriter(), "warning: %s\n", d)
	}

	if opts.Output != "" {
		if err := policy.WriteTable(opts.Output, result); err != nil {
			return failure(formatter, err)
		}
	}

	return outputCompilePolicySuccess(formatter, result, opts.Output)
}

func outputCompilePolicySuccess(formatter *OutputFormatter, result policy.Result, outputFile string) error {
	if formatter.Format == "json" {
		payload := CompilePolicyResult{Output: outputFile}
		for _, line := range result.Lines {
			payload.Lines = append(payload.Lines, line.String())
		}
		for _, d := range result.Diagnostics {
			payload.Diagnostics = append(payload.Diagnostics, d.String())
		}
		return formatter.Success(payload)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "✓ Wrote %d policy line(s) to %s\n", len(result.Lines), outputFile)
		return nil
	}
	fmt.Fprint(formatter.Writer, result.Render())
	return nil
}
