package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/gtsid"
)

func newValidateIDCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "validate-id",
		Short: "validate a GTS ID's format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return outputJSON(gtsid.Validate(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID to validate (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}
