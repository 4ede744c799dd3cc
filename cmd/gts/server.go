package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gts-registry/gts/internal/api"
	"github.com/gts-registry/gts/internal/config"
)

func newServerCmd(cfg *cliConfig) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "server",
		Short: "start the GTS HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := buildStore(cfg)
			if err != nil {
				return err
			}
			fieldCfg, err := config.Load(cfg.configPath)
			if err != nil {
				return err
			}

			fmt.Printf("starting server at http://%s:%d\n", host, port)
			if cfg.verbose == 0 {
				fmt.Println("use -v for verbose request logging")
			}

			return api.NewServer(s, fieldCfg, host, port, cfg.verbose).Start()
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "host address to bind")
	cmd.Flags().IntVar(&port, "port", 8000, "port to listen on")
	return cmd
}
