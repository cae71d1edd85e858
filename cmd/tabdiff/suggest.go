package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/core"
)

var suggestJSON bool

var suggestCmd = &cobra.Command{
	Use:   "suggest FILE1 FILE2",
	Short: "Propose column pairs between two files",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) error {
			res, err := svc.SuggestMappings(cmd.Context(), core.Local(args[0]), core.Local(args[1]))
			if err != nil {
				return err
			}
			if suggestJSON {
				return renderJSON(cmd.OutOrStdout(), res)
			}
			renderSuggestions(cmd.OutOrStdout(), res)
			return nil
		})
	},
}

func init() {
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "print suggestions as JSON")
}
