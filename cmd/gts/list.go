package main

import "github.com/spf13/cobra"

func newListCmd(cfg *cliConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list entities registered in the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			return outputJSON(s.List(limit))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of results")
	return cmd
}
