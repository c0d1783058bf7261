package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	// Typed events register their topics when the packages load.
	_ "github.com/nfrund/tafep-voice/internal/modules/assistant"
	"github.com/nfrund/tafep-voice/internal/topicmgr"
)

var (
	topicsFormat string
	topicsModule string
	topicsScope  string
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Inspect the message bus topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered topics",
	Long: `List every topic known to the message bus.

Examples:
  tafep-cli topics list
  tafep-cli topics list --module chat
  tafep-cli topics list --scope framework --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := filterTopics(topicmgr.Default(), topicsModule, topicsScope)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch topicsFormat {
		case "json":
			return writeTopicsJSON(out, entries)
		case "table":
			if len(entries) == 0 {
				fmt.Fprintln(out, "No topics found")
				return nil
			}
			writeTopicsTable(out, entries)
			return nil
		default:
			return fmt.Errorf("unsupported output format %q, use table or json", topicsFormat)
		}
	},
}

func filterTopics(reg *topicmgr.Registry, module, scope string) ([]topicmgr.Entry, error) {
	var want topicmgr.Scope
	if scope != "" {
		want = topicmgr.Scope(strings.ToLower(scope))
		if want != topicmgr.ScopeFramework && want != topicmgr.ScopeModule {
			return nil, fmt.Errorf("invalid scope %q, valid scopes: framework, module", scope)
		}
	}

	switch {
	case module == "" && want == "":
		return reg.List(), nil
	case module == "":
		return reg.ListByScope(want), nil
	}
	entries := reg.ListByModule(module)
	if want == "" {
		return entries, nil
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.Scope == want {
			kept = append(kept, e)
		}
	}
	return kept, nil
}

func writeTopicsTable(w io.Writer, entries []topicmgr.Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Scope", "Module", "Description"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, e := range entries {
		module := e.Module
		if module == "" {
			module = "-"
		}
		table.Append([]string{e.Name, string(e.Scope), module, e.Description})
	}
	table.Render()
}

func writeTopicsJSON(w io.Writer, entries []topicmgr.Entry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Topics []topicmgr.Entry `json:"topics"`
		Count  int              `json:"count"`
	}{Topics: entries, Count: len(entries)})
}

func init() {
	topicsListCmd.Flags().StringVarP(&topicsFormat, "format", "f", "table", "Output format (table, json)")
	topicsListCmd.Flags().StringVarP(&topicsModule, "module", "m", "", "Filter topics by module name")
	topicsListCmd.Flags().StringVarP(&topicsScope, "scope", "s", "", "Filter topics by scope (framework, module)")
	topicsCmd.AddCommand(topicsListCmd)
	rootCmd.AddCommand(topicsCmd)
}
