package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livp123/authguard/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show the current version of authguard`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "authguard %s\n", version.String())
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
