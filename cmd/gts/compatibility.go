package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/instance"
	"github.com/gts-registry/gts/internal/refine"
)

func newCompatibilityCmd(cfg *cliConfig) *cobra.Command {
	var oldSchemaID, newSchemaID string
	cmd := &cobra.Command{
		Use:   "compatibility",
		Short: "check backward/forward data compatibility between two schema versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			r := graph.New(s)
			engine := instance.New(s, r, refine.New(s, r))
			result, err := engine.CheckCompatibility(oldSchemaID, newSchemaID)
			if err != nil {
				return err
			}
			return outputJSON(result)
		},
	}
	cmd.Flags().StringVar(&oldSchemaID, "old-schema-id", "", "GTS ID of the old schema (required)")
	cmd.Flags().StringVar(&newSchemaID, "new-schema-id", "", "GTS ID of the new schema (required)")
	cmd.MarkFlagRequired("old-schema-id")
	cmd.MarkFlagRequired("new-schema-id")
	return cmd
}
