package main

import (
	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/gtsid"
)

func newMatchIDPatternCmd() *cobra.Command {
	var pattern, candidate string
	cmd := &cobra.Command{
		Use:   "match-id-pattern",
		Short: "match a GTS ID against a wildcard pattern",
		RunE: func(cmd *cobra.Command, args []string) error {
			return outputJSON(gtsid.Match(candidate, pattern))
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "pattern to match against (required)")
	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate GTS ID (required)")
	cmd.MarkFlagRequired("pattern")
	cmd.MarkFlagRequired("candidate")
	return cmd
}
