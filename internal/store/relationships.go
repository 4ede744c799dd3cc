package store

import "strings"

// GraphNode is one node of the reference graph `GET /resolve-relationships`
// returns: the entity itself, the (path -> node) edges its GTS references
// resolve to, and its schema-id edge if it has one.
type GraphNode struct {
	ID       string                `json:"id"`
	Refs     map[string]*GraphNode `json:"refs,omitempty"`
	SchemaID *GraphNode            `json:"schema_id,omitempty"`
	Errors   []string              `json:"errors,omitempty"`
}

// BuildRelationshipGraph recursively resolves every GTS reference and
// schema-id edge reachable from id, guarding against reference cycles.
func (s *Store) BuildRelationshipGraph(id string) *GraphNode {
	seen := make(map[string]bool)
	return s.buildNode(id, seen)
}

func (s *Store) buildNode(id string, seen map[string]bool) *GraphNode {
	node := &GraphNode{ID: id}
	if seen[id] {
		return node
	}
	seen[id] = true

	e := s.Get(id)
	if e == nil {
		node.Errors = append(node.Errors, "entity not found")
		return node
	}

	refs := make(map[string]*GraphNode)
	for _, ref := range e.Refs {
		if ref.ID == id || isJSONSchemaURL(ref.ID) {
			continue
		}
		refs[ref.SourcePath] = s.buildNode(ref.ID, seen)
	}
	if len(refs) > 0 {
		node.Refs = refs
	}

	switch {
	case e.SchemaID != "" && !isJSONSchemaURL(e.SchemaID):
		node.SchemaID = s.buildNode(e.SchemaID, seen)
	case e.SchemaID == "" && !e.IsSchema:
		node.Errors = append(node.Errors, "schema not recognized")
	}

	return node
}

func isJSONSchemaURL(s string) bool {
	return strings.HasPrefix(s, "http://json-schema.org") || strings.HasPrefix(s, "https://json-schema.org")
}
