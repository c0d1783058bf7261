package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nfrund/tafep-voice/internal/config"
)

const (
	statusOK      = "ok"
	statusMissing = "missing"
	statusInvalid = "invalid"
)

var verifyConfigCmd = &cobra.Command{
	Use:   "verify-config",
	Short: "Check the configuration the server would start with",
	Long: `verify-config reads .env and the environment exactly as the server does
and prints every setting with its status. Secrets are masked. The command
exits non-zero when any setting is missing or invalid.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadUnvalidated()
		if err != nil {
			return err
		}

		var problems []string
		if err := cfg.Validate(); err != nil {
			var verr *config.ValidationError
			if !errors.As(err, &verr) {
				return err
			}
			problems = verr.Problems
		}

		unmatched := renderSettings(cmd.OutOrStdout(), cfg.Settings(), problems)
		for _, p := range unmatched {
			fmt.Fprintln(cmd.OutOrStdout(), color.Red.Render("! "+p))
		}
		if len(problems) > 0 {
			return fmt.Errorf("configuration has %d problem(s)", len(problems))
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.Green.Render("Configuration is valid."))
		return nil
	},
}

// renderSettings writes the settings table and returns the problems that
// could not be attributed to a single setting.
func renderSettings(w io.Writer, settings []config.Setting, problems []string) []string {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Setting", "Value", "Status"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	matched := make(map[string]bool, len(problems))
	for _, s := range settings {
		status, problem := settingStatus(s.Env, problems)
		if problem != "" {
			matched[problem] = true
		}
		table.Append([]string{s.Env, s.Value, colorize(status)})
	}
	table.Render()

	var rest []string
	for _, p := range problems {
		if !matched[p] {
			rest = append(rest, p)
		}
	}
	return rest
}

// settingStatus finds the problem reported for env, if any.
func settingStatus(env string, problems []string) (string, string) {
	for _, p := range problems {
		if !strings.HasPrefix(p, env+" ") {
			continue
		}
		if strings.Contains(p, " is required") {
			return statusMissing, p
		}
		return statusInvalid, p
	}
	return statusOK, ""
}

func colorize(status string) string {
	switch status {
	case statusOK:
		return color.Green.Render(status)
	case statusMissing:
		return color.Yellow.Render(status)
	default:
		return color.Red.Render(status)
	}
}

func init() {
	rootCmd.AddCommand(verifyConfigCmd)
}
