package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/instance"
	"github.com/gts-registry/gts/internal/refine"
)

// newValidateInstanceCmd runs InstanceEngine.Validate against an instance id.
func newValidateInstanceCmd(cfg *cliConfig) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "validate-instance",
		Short: "validate an instance against its type's effective schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			r := graph.New(s)
			engine := instance.New(s, r, refine.New(s, r))
			return outputJSON(engine.Validate(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID of the instance (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}

// newValidateSchemaCmd runs RefinementEngine.ValidateSchema against a schema id.
func newValidateSchemaCmd(cfg *cliConfig) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "validate-schema",
		Short: "check a schema is a sound refinement of every ancestor",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			r := graph.New(s)
			rf := refine.New(s, r)
			if err := rf.ValidateSchema(id); err != nil {
				return outputJSON(map[string]any{"ok": false, "error": err.Error()})
			}
			return outputJSON(map[string]any{"ok": true})
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID of the schema (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}

// newValidateEntityCmd dispatches to Validate regardless of whether id names
// a schema or an instance, reporting which it turned out to be.
func newValidateEntityCmd(cfg *cliConfig) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "validate-entity",
		Short: "validate any entity, schema or instance, reporting its kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			r := graph.New(s)
			engine := instance.New(s, r, refine.New(s, r))
			return outputJSON(engine.Validate(id))
		},
	}
	cmd.Flags().StringVar(&id, "gts-id", "", "GTS ID of the entity (required)")
	cmd.MarkFlagRequired("gts-id")
	return cmd
}
