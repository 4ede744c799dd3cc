// Package config loads the field-priority configuration that drives entity
// and schema id extraction (internal/entity), accepting either JSON or YAML
// on disk.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// FieldConfig lists, in priority order, the document fields the extractor
// scans for an entity id and a schema id.
type FieldConfig struct {
	EntityIDFields []string `json:"entity_id_fields" yaml:"entity_id_fields"`
	SchemaIDFields []string `json:"schema_id_fields" yaml:"schema_id_fields"`
}

// Default returns the built-in field priority: entity id scan order
// "id, gts_id, gtsId, $id, $$id, gtsIid, gtsOid, gts_oid, gts_iid";
// schema/type field scan order "type, gtsTid, gtsType, schema, gtsT,
// gts_t, gts_tid, $schema, $$schema".
func Default() *FieldConfig {
	return &FieldConfig{
		EntityIDFields: []string{
			"id", "gts_id", "gtsId", "$id", "$$id",
			"gtsIid", "gtsOid", "gts_oid", "gts_iid",
		},
		SchemaIDFields: []string{
			"type", "gtsTid", "gtsType",
			"schema", "gtsT", "gts_t", "gts_tid",
			"$schema", "$$schema",
		},
	}
}

// Load reads a field-priority config file. Files named "*.yaml" or "*.yml"
// decode through goccy/go-yaml; everything else decodes as JSON. Load never
// returns an error for a missing optional override — callers pass "" to get
// Default().
func Load(path string) (*FieldConfig, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &FieldConfig{}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}

	if len(cfg.EntityIDFields) == 0 {
		cfg.EntityIDFields = Default().EntityIDFields
	}
	if len(cfg.SchemaIDFields) == 0 {
		cfg.SchemaIDFields = Default().SchemaIDFields
	}

	return cfg, nil
}
