// Package entity classifies raw JSON documents as GTS schemas or instances
// and extracts their identifiers using a field-priority extraction algorithm.
package entity

import (
	"strings"

	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/gtsid"
)

// Entity is a JSON document annotated with the identifiers the extraction
// algorithm derived from it.
type Entity struct {
	GtsID                 *gtsid.ID
	SchemaID              string
	SelectedEntityField   string
	SelectedSchemaIDField string
	IsSchema              bool
	Content               map[string]any
	Refs                  []Reference
	Label                 string
}

// New classifies content and extracts its identifiers using cfg (or
// config.Default() if cfg is nil).
func New(content map[string]any, cfg *config.FieldConfig) *Entity {
	if cfg == nil {
		cfg = config.Default()
	}

	e := &Entity{
		Content:  content,
		IsSchema: isSchemaDocument(content),
	}

	entityIDValue := e.extractEntityID(cfg)
	e.SchemaID = e.extractSchemaID(cfg, entityIDValue)

	if entityIDValue != "" && gtsid.Valid(entityIDValue) {
		if id, err := gtsid.Parse(entityIDValue); err == nil {
			e.GtsID = id
		}
	}

	e.Refs = ExtractReferences(content)
	e.Label = e.computeLabel()
	return e
}

func (e *Entity) computeLabel() string {
	if e.GtsID != nil {
		return e.GtsID.Canonical
	}
	return ""
}

// isSchemaDocument applies the classifier signal: presence of `$schema`
// (or its double-dollar GTS form).
func isSchemaDocument(content map[string]any) bool {
	if content == nil {
		return false
	}
	if _, ok := content["$schema"]; ok {
		return true
	}
	_, ok := content["$$schema"]
	return ok
}

// fieldValue fetches a string field, stripping the "gts://" schema-id URI
// prefix only for "$id" and "$$id" (the fields JSON Schema serialises it in).
func fieldValue(content map[string]any, field string) string {
	raw, ok := content[field]
	if !ok {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if field == "$id" || field == "$$id" {
		s = strings.TrimPrefix(s, gtsid.URIPrefix)
	}
	return s
}

// firstField scans fields in priority order, preferring a value that is
// itself a well-formed GTS id; failing that, the first non-empty value.
func firstField(content map[string]any, fields []string) (field, value string) {
	for _, f := range fields {
		if v := fieldValue(content, f); v != "" && gtsid.Valid(v) {
			return f, v
		}
	}
	for _, f := range fields {
		if v := fieldValue(content, f); v != "" {
			return f, v
		}
	}
	return "", ""
}

func (e *Entity) extractEntityID(cfg *config.FieldConfig) string {
	if e.IsSchema {
		field, value := "$$id", fieldValue(e.Content, "$$id")
		if value == "" {
			field, value = "$id", fieldValue(e.Content, "$id")
		}
		e.SelectedEntityField = field
		return value
	}

	field, value := firstField(e.Content, cfg.EntityIDFields)
	e.SelectedEntityField = field
	return value
}

// extractSchemaID derives the parent schema id: for schemas, the immediate
// `$$id`-chain parent if derived, else the `$schema` value; for instances,
// the chain prefix up to the last `~` if the entity id is chained, else the
// first explicit type field.
func (e *Entity) extractSchemaID(cfg *config.FieldConfig, entityIDValue string) string {
	if e.IsSchema {
		if entityIDValue != "" && gtsid.Valid(entityIDValue) && strings.HasSuffix(entityIDValue, "~") {
			if parent := chainPrefix(entityIDValue, true); parent != "" {
				e.SelectedSchemaIDField = e.SelectedEntityField
				return parent
			}
		}
		if v := fieldValue(e.Content, "$schema"); v != "" {
			e.SelectedSchemaIDField = "$schema"
			return v
		}
		if v := fieldValue(e.Content, "$$schema"); v != "" {
			e.SelectedSchemaIDField = "$$schema"
			return v
		}
		return ""
	}

	// Chain priority is absolute: an explicit type
	// field is ignored once the entity id itself is a chained GTS id.
	if entityIDValue != "" && gtsid.Valid(entityIDValue) && !strings.HasSuffix(entityIDValue, "~") {
		if parent := chainPrefix(entityIDValue, false); parent != "" {
			e.SelectedSchemaIDField = e.SelectedEntityField
			return parent
		}
	}

	field, value := firstField(e.Content, cfg.SchemaIDFields)
	if value != "" {
		e.SelectedSchemaIDField = field
		return value
	}
	return ""
}

// chainPrefix returns everything up to and including the last `~` in id.
// For a schema id (typeShaped=true) it is the penultimate chain link
// (stripping the final segment of a multi-segment type chain); for an
// instance id it is the entire type prefix before the instance's trailing
// segment.
func chainPrefix(id string, typeShaped bool) string {
	if typeShaped {
		trimmed := strings.TrimSuffix(id, "~")
		last := strings.LastIndex(trimmed, "~")
		if last <= 0 {
			// single-segment type: no parent chain prefix
			return ""
		}
		return trimmed[:last+1]
	}
	last := strings.LastIndex(id, "~")
	if last <= 0 {
		return ""
	}
	return id[:last+1]
}
