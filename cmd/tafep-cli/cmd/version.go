package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev" // set with -ldflags "-X github.com/nfrund/tafep-voice/cmd/tafep-cli/cmd.version=..."

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tafep-cli",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tafep-cli %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
