package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/gtsid"
)

func newUUIDCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "uuid",
		Short: "derive the deterministic UUIDv5 for a GTS ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return outputJSON(gtsid.ToUUID(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}
