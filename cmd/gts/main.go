// Command gts is the GTS registry CLI: identifier algebra, validation,
// casting, compatibility, query and attribute access over a store ingested
// from one or more JSON/schema file paths, plus the HTTP server entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cliConfig holds the persistent flags every subcommand shares.
type cliConfig struct {
	verbose    int
	configPath string
	path       string
}

func main() {
	cfg := &cliConfig{}

	root := &cobra.Command{
		Use:           "gts",
		Short:         "GTS registry CLI",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().IntVarP(&cfg.verbose, "verbose", "v", 0, "verbosity level (0=silent, 1=info, 2=debug)")
	root.PersistentFlags().StringVar(&cfg.configPath, "config", "", "path to a field-priority config (JSON or YAML)")
	root.PersistentFlags().StringVar(&cfg.path, "path", "", "comma-separated file/directory paths to ingest")

	root.AddCommand(
		newValidateIDCmd(),
		newParseIDCmd(),
		newMatchIDPatternCmd(),
		newUUIDCmd(),
		newValidateInstanceCmd(cfg),
		newValidateSchemaCmd(cfg),
		newValidateEntityCmd(cfg),
		newResolveRelationshipsCmd(cfg),
		newCompatibilityCmd(cfg),
		newCastCmd(cfg),
		newQueryCmd(cfg),
		newAttrCmd(cfg),
		newListCmd(cfg),
		newServerCmd(cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
