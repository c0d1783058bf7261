package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/tafep-voice/internal/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "tafep-cli",
	Short: "TAFEP voice assistant tools",
	Long: `tafep-cli works with the same configuration as the server.

Available commands:
  verify-config    Check every setting the server will read
  transcribe       Run a WAV file through the configured speech-to-text provider
  synthesize       Write speech for a piece of text
  topics list      Show the message bus topics

Use "tafep-cli [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, _, err := logging.New(logging.Options{Level: logLevel, Console: os.Stderr})
		return err
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "WARN", "Console log level (DEBUG, INFO, WARN, ERROR)")
}
