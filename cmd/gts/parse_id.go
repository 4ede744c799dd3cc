package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/gtsid"
)

func newParseIDCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "parse-id",
		Short: "parse a GTS ID into its component segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return outputJSON(gtsid.ParseForWire(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID to parse (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}
