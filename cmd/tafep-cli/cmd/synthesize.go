package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/nfrund/tafep-voice/internal/tts"
)

var synthOutput string

var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <text>",
	Short: "Write synthesized speech for text to a file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		return withServices(cmd.Context(), func(i do.Injector) error {
			synth, err := do.Invoke[tts.Synthesizer](i)
			if err != nil {
				return err
			}
			a, err := synth.Synthesize(cmd.Context(), text)
			if err != nil {
				return err
			}

			path := synthOutput
			if path == "" {
				path = "speech" + extensionFor(a.MIMEType)
			}
			if err := os.WriteFile(path, a.Data, 0o644); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bytes of %s to %s (%s)\n", len(a.Data), a.MIMEType, path, synth.Name())
			return nil
		})
	},
}

func extensionFor(mimeType string) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

func init() {
	synthesizeCmd.Flags().StringVarP(&synthOutput, "output", "o", "", "Output file (default speech.<ext> for the provider's format)")
	rootCmd.AddCommand(synthesizeCmd)
}
