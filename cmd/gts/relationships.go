package main

import "github.com/spf13/cobra"

func newResolveRelationshipsCmd(cfg *cliConfig) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "resolve-relationships",
		Short: "build the reference/schema-id graph reachable from an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			return outputJSON(s.BuildRelationshipGraph(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID of the entity (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}
