// Command gts-server starts the GTS HTTP server over an empty store,
// expecting entities to be pushed through POST /entities after boot.
package main

import (
	"flag"
	"log"

	"github.com/gts-registry/gts/internal/api"
	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/store"
)

func main() {
	host := flag.String("host", "127.0.0.1", "host to bind to")
	port := flag.Int("port", 8000, "port to listen on")
	verbose := flag.Int("verbose", 1, "verbosity level (0=silent, 1=info, 2=debug)")
	configPath := flag.String("config", "", "path to an optional field-priority config (JSON or YAML)")
	flag.Parse()

	fieldCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	s := store.New()
	srv := api.NewServer(s, fieldCfg, *host, *port, *verbose)
	log.Fatal(srv.Start())
}
