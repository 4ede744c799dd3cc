package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/obslog"
	"github.com/gts-registry/gts/internal/store"
)

// buildStore loads cfg.configPath (or config.Default()) and ingests every
// path in cfg.path (comma-separated files/directories) into a fresh store.
func buildStore(cfg *cliConfig) (*store.Store, error) {
	fieldCfg, err := config.Load(cfg.configPath)
	if err != nil {
		return nil, err
	}

	s := store.New()
	s.SetLogger(obslog.New(obslog.Level(cfg.verbose)))
	if cfg.path == "" {
		return s, nil
	}

	paths := strings.Split(cfg.path, ",")
	for i := range paths {
		paths[i] = strings.TrimSpace(paths[i])
	}

	reader := store.NewFileReader(paths, fieldCfg)
	count, err := store.LoadAll(s, reader)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", cfg.path, err)
	}
	if cfg.verbose > 0 {
		fmt.Fprintf(os.Stderr, "ingested %d entities from %s\n", count, cfg.path)
	}
	return s, nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
