package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/instance"
	"github.com/gts-registry/gts/internal/refine"
)

func newCastCmd(cfg *cliConfig) *cobra.Command {
	var fromID, toSchemaID string
	cmd := &cobra.Command{
		Use:   "cast",
		Short: "cast an instance to a sibling minor-version schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			r := graph.New(s)
			engine := instance.New(s, r, refine.New(s, r))
			result, err := engine.Cast(fromID, toSchemaID)
			if err != nil {
				return err
			}
			return outputJSON(result)
		},
	}
	cmd.Flags().StringVar(&fromID, "from-id", "", "GTS ID of the instance to cast (required)")
	cmd.Flags().StringVar(&toSchemaID, "to-schema-id", "", "GTS ID of the target schema (required)")
	cmd.MarkFlagRequired("from-id")
	cmd.MarkFlagRequired("to-schema-id")
	return cmd
}
