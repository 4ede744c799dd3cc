package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/refine"
	"github.com/gts-registry/gts/internal/store"
)

func newEngine(t *testing.T) (*store.Store, *Engine) {
	t.Helper()
	s := store.New()
	r := graph.New(s)
	rf := refine.New(s, r)
	return s, New(s, r, rf)
}

func register(t *testing.T, s *store.Store, content map[string]any) {
	t.Helper()
	require.NoError(t, s.Put(store.NewEntity(content, nil)))
}

func TestValidateAcceptsConformingInstance(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "gts.x.core.widget.type.v1~",
		"type":    "object",
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"type": map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	})
	register(t, s, map[string]any{
		"id":   "gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0",
		"type": "gts.x.core.widget.type.v1~",
		"name": "hello",
	})

	res := e.Validate("gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0")
	assert.True(t, res.OK, res.Error)
	assert.Equal(t, "instance", res.EntityType)
}

func TestValidateRejectsMissingRequiredProperty(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "gts.x.core.widget.type.v1~",
		"type":    "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
		"required": []any{"name"},
	})
	register(t, s, map[string]any{
		"id":   "gts.x.core.widget.type.v1~acme.prod.two.thing.v1.0",
		"type": "gts.x.core.widget.type.v1~",
	})

	res := e.Validate("gts.x.core.widget.type.v1~acme.prod.two.thing.v1.0")
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

func TestValidateSchemaDelegatesToRefinementEngine(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "string"})
	register(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~bad.ns.sub.item.v1~",
		"allOf": []any{
			map[string]any{"$ref": "gts://gts.x.core.widget.type.v1~"},
			map[string]any{"type": []any{"string", "number"}},
		},
	})

	res := e.Validate("gts.x.core.widget.type.v1~bad.ns.sub.item.v1~")
	assert.False(t, res.OK)
	assert.Equal(t, "schema", res.EntityType)
}

func TestCastUpcastFillsDefault(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	})
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1.1~",
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"tier": map[string]any{"type": "string", "default": "standard"},
		},
	})
	register(t, s, map[string]any{
		"id":   "gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0",
		"type": "gts.x.core.widget.type.v1~",
		"name": "hello",
	})

	res, err := e.Cast("gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0", "gts.x.core.widget.type.v1.1~")
	require.NoError(t, err)
	assert.Equal(t, "up", res.Direction)
	assert.Equal(t, "standard", res.CastedEntity["tier"])
	assert.Contains(t, res.AddedProperties, "tier")
}

func TestCastDowncastDropsUndeclaredPropertyUnconditionally(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type": "object",
		"properties": map[string]any{
			"field1": map[string]any{"type": "string"},
		},
	})
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1.1~",
		"type": "object",
		"properties": map[string]any{
			"field1": map[string]any{"type": "string"},
			"field2": map[string]any{"type": "string", "default": "default_value"},
		},
	})
	register(t, s, map[string]any{
		"id":     "gts.x.core.widget.type.v1.1~acme.prod.one.thing.v1.0",
		"type":   "gts.x.core.widget.type.v1.1~",
		"field1": "value1",
		"field2": "value2",
	})

	res, err := e.Cast("gts.x.core.widget.type.v1.1~acme.prod.one.thing.v1.0", "gts.x.core.widget.type.v1~")
	require.NoError(t, err)
	assert.Equal(t, "down", res.Direction)
	assert.True(t, res.OK, res.Error)
	assert.NotContains(t, res.CastedEntity, "field2")
	assert.Contains(t, res.RemovedProperties, "field2")
}

func TestCastRejectsSchemaAsSource(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "object"})
	register(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1.1~", "type": "object"})

	_, err := e.Cast("gts.x.core.widget.type.v1~", "gts.x.core.widget.type.v1.1~")
	require.Error(t, err)
}

func TestCheckCompatibilityFlagsNewlyRequiredAsBackwardBreaking(t *testing.T) {
	s, e := newEngine(t)
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	})
	register(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1.1~",
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	})

	res, err := e.CheckCompatibility("gts.x.core.widget.type.v1~", "gts.x.core.widget.type.v1.1~")
	require.NoError(t, err)
	assert.False(t, res.IsBackwardCompatible)
	assert.True(t, res.IsForwardCompatible)
}
