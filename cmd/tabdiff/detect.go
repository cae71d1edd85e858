package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/core"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect FILE",
	Short: "Show each column's detected type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(svc *core.Service) error {
			sum, err := svc.Detect(cmd.Context(), core.Local(args[0]))
			if err != nil {
				return err
			}
			if detectJSON {
				return renderJSON(cmd.OutOrStdout(), sum)
			}
			renderSummary(cmd.OutOrStdout(), sum)
			return nil
		})
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the summary as JSON")
}
