package entity

import "github.com/gts-registry/gts/internal/config"

// ExtractResult is the response body for `POST /extract-id`.
type ExtractResult struct {
	ID                    string  `json:"id"`
	SchemaID              *string `json:"schema_id,omitempty"`
	SelectedEntityField   *string `json:"selected_entity_field,omitempty"`
	SelectedSchemaIDField *string `json:"selected_schema_id_field,omitempty"`
	IsSchema              bool    `json:"is_schema"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Extract classifies content and reports the extracted identifiers in the
// shape the HTTP/CLI layer sends over the wire.
func Extract(content map[string]any, cfg *config.FieldConfig) ExtractResult {
	e := New(content, cfg)

	result := ExtractResult{
		IsSchema:              e.IsSchema,
		SchemaID:              strPtr(e.SchemaID),
		SelectedEntityField:   strPtr(e.SelectedEntityField),
		SelectedSchemaIDField: strPtr(e.SelectedSchemaIDField),
	}

	switch {
	case e.GtsID != nil:
		result.ID = e.GtsID.Canonical
	case e.SelectedEntityField != "":
		if v, ok := content[e.SelectedEntityField].(string); ok {
			result.ID = v
		}
	}

	return result
}
