package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, the config file and
XTSWALK_* environment variables.

Examples:
  xtswalk config
  XTSWALK_SECTOR_SIZE=4096 xtswalk config -o yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfig()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig() error {
	c := GetConfig()
	if GetOutputFormat() != "table" {
		return app.Encode(os.Stdout, GetOutputFormat(), c)
	}

	file := c.File
	if file == "" {
		file = "(none, using defaults)"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "KEY\tVALUE\n")
	fmt.Fprintf(w, "---\t-----\n")
	fmt.Fprintf(w, "file\t%s\n", file)
	fmt.Fprintf(w, "backend\t%s\n", c.Backend)
	fmt.Fprintf(w, "lanes\t%d\n", c.Lanes)
	fmt.Fprintf(w, "pin_thread\t%t\n", c.PinThread)
	fmt.Fprintf(w, "sector_size\t%d\n", c.SectorSize)
	fmt.Fprintf(w, "workers\t%d\n", c.Workers)
	fmt.Fprintf(w, "forbid_weak_keys\t%t\n", c.ForbidWeakKeys)
	fmt.Fprintf(w, "kdf.iterations\t%d\n", c.KDF.Iterations)
	fmt.Fprintf(w, "kdf.hash\t%s\n", c.KDF.Hash)
	return w.Flush()
}
