package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSchemaDocument(t *testing.T) {
	doc := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "gts://gts.x.core.events.type.v1~",
		"type":    "object",
	}
	res := Extract(doc, nil)
	assert.True(t, res.IsSchema)
	assert.Equal(t, "gts.x.core.events.type.v1~", res.ID)
	require.NotNil(t, res.SchemaID)
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", *res.SchemaID)
}

func TestExtractDerivedSchemaParent(t *testing.T) {
	doc := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$$id":    "gts.x.core.events.type.v1~child.ns.sub.item.v1~",
	}
	res := Extract(doc, nil)
	assert.True(t, res.IsSchema)
	require.NotNil(t, res.SchemaID)
	assert.Equal(t, "gts.x.core.events.type.v1~", *res.SchemaID)
}

func TestExtractInstanceChainPriority(t *testing.T) {
	// Chain priority is absolute: an explicit "type" field is ignored once
	// "id" is itself a chained GTS id.
	doc := map[string]any{
		"id":   "gts.x.core.events.type.v1~ord.status.ok.thing.v1.0",
		"type": "gts.someone.else.wrong.type.v9~",
	}
	res := Extract(doc, nil)
	assert.False(t, res.IsSchema)
	require.NotNil(t, res.SchemaID)
	assert.Equal(t, "gts.x.core.events.type.v1~", *res.SchemaID)
}

func TestExtractAnonymousInstance(t *testing.T) {
	doc := map[string]any{
		"id":   "550e8400-e29b-41d4-a716-446655440000",
		"type": "gts.x.core.events.type.v1~",
	}
	res := Extract(doc, nil)
	assert.False(t, res.IsSchema)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", res.ID)
	require.NotNil(t, res.SchemaID)
	assert.Equal(t, "gts.x.core.events.type.v1~", *res.SchemaID)
}

func TestExtractReferencesWalksNested(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": "gts.x.core.events.type.v1~"},
		"c": []any{"gts.x.core.other.type.v2~", "not-a-gts-id"},
	}
	refs := ExtractReferences(doc)
	assert.Len(t, refs, 2)
}
