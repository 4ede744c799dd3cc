package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gts-registry/gts/internal/store"
)

func registerSchema(t *testing.T, s *store.Store, content map[string]any) {
	t.Helper()
	require.NoError(t, s.Put(store.NewEntity(content, nil)))
}

func TestEffectiveMergesChainAncestor(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "gts.x.core.widget.type.v1~",
		"type":    "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string", "maxLength": float64(128)},
		},
		"required": []any{"name"},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$$id":    "gts.x.core.widget.type.v1~special.ns.sub.item.v1~",
		"properties": map[string]any{
			"color": map[string]any{"type": "string"},
		},
	})

	r := New(s)
	eff, err := r.Effective("gts.x.core.widget.type.v1~special.ns.sub.item.v1~")
	require.NoError(t, err)

	props := eff["properties"].(map[string]any)
	assert.Contains(t, props, "name")
	assert.Contains(t, props, "color")
	assert.ElementsMatch(t, eff["required"], []any{"name"})
}

func TestEffectiveTighterBoundWins(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"properties": map[string]any{"name": map[string]any{"type": "string", "maxLength": float64(256)}},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.widget.type.v1~d.e.f.g.v1~",
		"properties": map[string]any{"name": map[string]any{"type": "string", "maxLength": float64(128)}},
	})

	r := New(s)
	eff, err := r.Effective("gts.x.core.widget.type.v1~d.e.f.g.v1~")
	require.NoError(t, err)

	name := eff["properties"].(map[string]any)["name"].(map[string]any)
	assert.Equal(t, float64(128), name["maxLength"])
}

func TestEffectiveTypeContradictionErrors(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "string"})
	registerSchema(t, s, map[string]any{"$schema": "x", "$$id": "gts.x.core.widget.type.v1~a.b.c.d.v1~", "type": "number"})

	r := New(s)
	_, err := r.Effective("gts.x.core.widget.type.v1~a.b.c.d.v1~")
	require.Error(t, err)
	assert.IsType(t, &ContradictionError{}, err)
}

func TestEffectiveCyclicChainDetected(t *testing.T) {
	// A schema can't be its own chain ancestor; simulate a cycle via two
	// $ref-linked allOf schemas pointing at each other.
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.a.type.v1~",
		"allOf": []any{map[string]any{"$ref": "gts://gts.x.core.b.type.v1~"}},
	})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.b.type.v1~",
		"allOf": []any{map[string]any{"$ref": "gts://gts.x.core.a.type.v1~"}},
	})

	r := New(s)
	_, err := r.Effective("gts.x.core.a.type.v1~")
	require.Error(t, err)
	assert.IsType(t, &CyclicDerivationError{}, err)
}

func TestEffectiveMissingRefAncestorErrors(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.a.type.v1~",
		"allOf": []any{map[string]any{"$ref": "gts://gts.x.core.missing.type.v1~"}},
	})

	r := New(s)
	_, err := r.Effective("gts.x.core.a.type.v1~")
	require.Error(t, err)
	assert.IsType(t, &MissingAncestorError{}, err)
}

func TestEffectiveIsMemoisedUntilGenerationChanges(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "object"})

	r := New(s)
	first, err := r.Effective("gts.x.core.widget.type.v1~")
	require.NoError(t, err)

	registerSchema(t, s, map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~", "type": "object",
		"properties": map[string]any{"extra": map[string]any{"type": "string"}},
	})

	second, err := r.Effective("gts.x.core.widget.type.v1~")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestAncestorsWalksTransitiveRefAndChainEdges(t *testing.T) {
	s := store.New()
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.root.type.v1~", "type": "object"})
	registerSchema(t, s, map[string]any{
		"$schema": "x", "$$id": "gts.x.core.root.type.v1~mid.ns.t.sub.v1~",
		"allOf": []any{map[string]any{"$ref": "gts://gts.x.core.side.type.v1~"}},
	})
	registerSchema(t, s, map[string]any{"$schema": "x", "$id": "gts.x.core.side.type.v1~", "type": "object"})

	r := New(s)
	ancestors, err := r.Ancestors("gts.x.core.root.type.v1~mid.ns.t.sub.v1~")
	require.NoError(t, err)
	assert.Contains(t, ancestors, "gts.x.core.root.type.v1~")
	assert.Contains(t, ancestors, "gts.x.core.side.type.v1~")
}
