package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
	"github.com/deploymenttheory/go-xtswalk/pkg/app/selftest"
)

var selftestBackends []string

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the IEEE 1619 known-answer vectors",
	Long: `Encrypt and decrypt the XTS-AES vectors from IEEE P1619 Annex B on every
backend that can run here, including the ciphertext stealing cases.

Examples:
  xtswalk selftest
  xtswalk selftest --backend generic -o json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelftest()
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
	selftestCmd.Flags().StringSliceVar(&selftestBackends, "backend", nil, "backends to test (default: all available)")
}

func runSelftest() error {
	ctx := app.NewContext()
	ctx.OutputFormat = GetOutputFormat()
	ctx.Verbose = GetVerbose()
	ctx.Quiet = GetQuiet()

	response, err := selftest.Handle(ctx, &selftest.Request{Backends: selftestBackends})
	if err != nil {
		return err
	}

	if !ctx.Quiet {
		if err := selftest.FormatOutput(response, ctx.OutputFormat); err != nil {
			return err
		}
	}
	return response.Err()
}
