package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
	"github.com/deploymenttheory/go-xtswalk/pkg/app/backends"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "Show cipher backends and CPU support",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := app.NewContext()
		ctx.OutputFormat = GetOutputFormat()
		ctx.Verbose = GetVerbose()

		response, err := backends.Handle(ctx)
		if err != nil {
			return err
		}
		return backends.FormatOutput(response, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}
