package main

import "github.com/spf13/cobra"

func newAttrCmd(cfg *cliConfig) *cobra.Command {
	var gtsWithPath string
	cmd := &cobra.Command{
		Use:   "attr",
		Short: "resolve an attribute path against a registered entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			return outputJSON(s.GetAttribute(gtsWithPath))
		},
	}
	cmd.Flags().StringVar(&gtsWithPath, "gts-with-path", "", "\"<gts_id>@<dotted.path>\" selector (required)")
	cmd.MarkFlagRequired("gts-with-path")
	return cmd
}
