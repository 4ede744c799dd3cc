package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/store"
)

func registerSchema(t *testing.T, s *store.Store, content map[string]any) {
	t.Helper()
	require.NoError(t, s.Put(store.NewEntity(content, nil)))
}

func newEngine(s *store.Store) *Engine {
	return New(s, graph.New(s))
}

func TestValidateSchemaAcceptsSoundTightening(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "maxLength": float64(256)},
		},
		"required": []any{"name"},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~tight.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{
				"properties": map[string]any{
					"name": map[string]any{"type": "string", "maxLength": float64(128)},
				},
			},
		},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~tight.ns.sub.item.v1~")
	assert.NoError(t, err)
}

func TestValidateSchemaRejectsLooseningBound(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "maxLength": float64(128)},
		},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~loose.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{
				"properties": map[string]any{
					"name": map[string]any{"type": "string", "maxLength": float64(256)},
				},
			},
		},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~loose.ns.sub.item.v1~")
	require.Error(t, err)
	assert.IsType(t, &Violation{}, err)
}

func TestValidateSchemaRejectsTypeWidening(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "string"})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~wide.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{"type": []any{"string", "number"}},
		},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~wide.ns.sub.item.v1~")
	require.Error(t, err)
	assert.IsType(t, &Violation{}, err)
}

func TestValidateSchemaRejectsDroppedConstraintOnRedeclaredType(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "maxLength": float64(128)},
		},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~drop.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{
				"properties": map[string]any{
					"name": map[string]any{"type": "string"},
				},
			},
		},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~drop.ns.sub.item.v1~")
	require.Error(t, err)
	assert.IsType(t, &Violation{}, err)
}

func TestValidateSchemaRejectsWrongAllOfShape(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "object"})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~bad.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{"type": "object"},
			map[string]any{"properties": map[string]any{"extra": map[string]any{"type": "string"}}},
		},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~bad.ns.sub.item.v1~")
	require.Error(t, err)
	assert.IsType(t, &ShapeError{}, err)
}

func TestValidateSchemaRejectsOrphanTraits(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type":          "object",
		"x-gts-traits": map[string]any{"owner": "team-a"},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~")
	require.Error(t, err)
	assert.IsType(t, &OrphanTraitsError{}, err)
}

func TestValidateSchemaAcceptsTraitsMatchingSchemaWithDefaults(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"x-gts-traits-schema": map[string]any{
			"properties": map[string]any{
				"owner": map[string]any{"type": "string"},
				"tier":  map[string]any{"type": "string", "default": "standard"},
			},
			"required":             []any{"owner"},
			"additionalProperties": false,
		},
		"x-gts-traits": map[string]any{"owner": "team-a"},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~")
	assert.NoError(t, err)
}

func TestValidateSchemaRejectsTraitsViolatingRequired(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"x-gts-traits-schema": map[string]any{
			"properties": map[string]any{"owner": map[string]any{"type": "string"}},
			"required":   []any{"owner"},
		},
		"x-gts-traits": map[string]any{},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~")
	require.Error(t, err)
}

func TestValidateSchemaRejectsTraitsViolatingEnum(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"x-gts-traits-schema": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"priority": map[string]any{
					"type":    "string",
					"enum":    []any{"low", "medium", "high", "critical"},
					"default": "medium",
				},
			},
		},
		"x-gts-traits": map[string]any{"priority": "ultra_high"},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~")
	require.Error(t, err)
}

func TestValidateSchemaRejectsTraitsViolatingMinimum(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"x-gts-traits-schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"retries": map[string]any{"type": "integer", "minimum": float64(1)},
			},
		},
		"x-gts-traits": map[string]any{"retries": float64(0)},
	})

	e := newEngine(s)
	err := e.ValidateSchema("gts.x.core.widget.type.v1~")
	require.Error(t, err)
}

func TestCheckXGtsRefResolvesGTSPrefix(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.owner.type.v1~", "type": "object"})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.owner.type.v1~team.ns.alpha.item.v1.0",
		"type": "object",
	})

	e := newEngine(s)
	schema := map[string]any{"x-gts-ref": "gts.x.core.owner.type.v1~"}
	err := e.CheckXGtsRef(schema, schema, "gts.x.core.owner.type.v1~team.ns.alpha.item.v1.0", "$.owner")
	assert.NoError(t, err)
}

func TestCheckXGtsRefRejectsUnresolvedTarget(t *testing.T) {
	s := store.New()
	e := newEngine(s)
	schema := map[string]any{"x-gts-ref": "gts.x.core.owner.type.v1~"}
	err := e.CheckXGtsRef(schema, schema, "gts.x.core.owner.type.v1~team.ns.alpha.item.v1.0", "$.owner")
	require.Error(t, err)
	assert.IsType(t, &RefTargetError{}, err)
}

func TestCheckXGtsRefResolvesJSONPointerAgainstRootDocument(t *testing.T) {
	e := newEngine(store.New())
	schema := map[string]any{
		"title": "PTR-TITLE",
		"type":  "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string", "x-gts-ref": "/title"},
			"kind": map[string]any{"type": "string", "x-gts-ref": "/properties/id/x-gts-ref"},
		},
	}
	doc := map[string]any{"id": "PTR-TITLE", "kind": "/title"}

	err := e.CheckXGtsRef(schema, schema, doc, "$")
	assert.NoError(t, err)

	doc["id"] = "WRONG-TITLE"
	err = e.CheckXGtsRef(schema, schema, doc, "$")
	require.Error(t, err)
	assert.IsType(t, &RefTargetError{}, err)
}

func TestResolvePointerRefComparesLiterally(t *testing.T) {
	root := map[string]any{"properties": map[string]any{"name": map[string]any{"const": "widget"}}}
	err := ResolvePointerRef(root, "/properties/name/const", "widget")
	assert.NoError(t, err)

	err = ResolvePointerRef(root, "/properties/name/const", "gizmo")
	assert.Error(t, err)
}

func TestValidateXGtsRefParseableRejectsNonGTSString(t *testing.T) {
	schema := map[string]any{"x-gts-ref": "not a ref at all"}
	err := ValidateXGtsRefParseable(schema)
	assert.Error(t, err)
}
