package cmd

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/nfrund/tafep-voice/internal/audio"
	"github.com/nfrund/tafep-voice/internal/stt"
)

var topEmotions int

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe a WAV recording",
	Long: `Transcribe prepares a WAV file the way uploads are prepared (mono,
resampled, trimmed and normalized), sends it to the configured STT provider,
and prints the transcript with the strongest emotions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read recording: %w", err)
		}

		return withServices(cmd.Context(), func(i do.Injector) error {
			preparer, err := do.Invoke[audio.Preparer](i)
			if err != nil {
				return err
			}
			transcriber, err := do.Invoke[stt.Transcriber](i)
			if err != nil {
				return err
			}

			prepared, err := preparer.Prepare(data, audio.MIMEWAV)
			if err != nil {
				return err
			}
			u, err := transcriber.Transcribe(cmd.Context(), stt.Recording{
				Data:       prepared.Data,
				MIMEType:   prepared.MIMEType,
				SampleRate: prepared.SampleRate,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider:   %s\n", transcriber.Name())
			fmt.Fprintf(out, "Duration:   %s\n", prepared.Duration)
			if u.Language != "" {
				fmt.Fprintf(out, "Language:   %s\n", u.Language)
			}
			fmt.Fprintf(out, "Transcript: %s\n", u.Text)
			if len(u.Emotions) > 0 {
				fmt.Fprintln(out, "Emotions:")
				for _, e := range u.Emotions[:min(topEmotions, len(u.Emotions))] {
					fmt.Fprintf(out, "  %-16s %5.1f%%\n", e.Name, e.Score*100)
				}
			}
			return nil
		})
	},
}

func init() {
	transcribeCmd.Flags().IntVarP(&topEmotions, "top", "n", 3, "Number of emotions to print")
	rootCmd.AddCommand(transcribeCmd)
}
