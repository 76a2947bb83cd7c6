package cmd

import (
	"github.com/spf13/cobra"
)

// presetsCmd represents the presets command
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the filter presets from config",
	RunE: func(cmd *cobra.Command, args []string) error {
		names := filters.ListFilters()
		expressions := make(map[string]string, len(names))
		for _, name := range names {
			if f, ok := filters.GetFilter(name); ok {
				expressions[name] = f.Expression()
			}
		}
		printPresets(cmd.OutOrStdout(), names, expressions)
		return nil
	},
}
