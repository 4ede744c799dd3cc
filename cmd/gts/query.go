package main

import "github.com/spf13/cobra"

func newQueryCmd(cfg *cliConfig) *cobra.Command {
	var expr string
	var limit int
	cmd := &cobra.Command{
		Use:   "query",
		Short: "filter entities with a pattern + attribute-filter expression",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			return outputJSON(s.Query(expr, limit))
		},
	}
	cmd.Flags().StringVar(&expr, "expr", "", "query expression (required)")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of results")
	cmd.MarkFlagRequired("expr")
	return cmd
}
