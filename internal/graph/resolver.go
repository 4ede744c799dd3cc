// Package graph computes the effective schema of a type id: the structural
// intersection of its own declared constraints with every ancestor reached
// by chain parentage and allOf/$ref derivation.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gts-registry/gts/internal/store"
)

// CyclicDerivationError reports a derivation cycle found while walking
// either chain or allOf/$ref edges.
type CyclicDerivationError struct {
	ID string
}

func (e *CyclicDerivationError) Error() string {
	return fmt.Sprintf("cyclic derivation detected at %s", e.ID)
}

// MissingAncestorError reports a derivation or $ref edge whose target isn't
// a registered schema.
type MissingAncestorError struct {
	ID string
}

func (e *MissingAncestorError) Error() string {
	return fmt.Sprintf("missing ancestor schema: %s", e.ID)
}

// ContradictionError reports two ancestors whose merged constraints admit
// no value at all (e.g. disjoint type sets, empty enum intersection).
type ContradictionError struct {
	Path   string
	Reason string
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("contradiction at %s: %s", e.Path, e.Reason)
}

type cacheKey struct {
	id  string
	gen uint64
}

type cacheEntry struct {
	schema map[string]any
	err    error
}

// Resolver produces effective schemas and memoises them per store
// generation, so a write invalidates exactly the entries a reader would
// otherwise see as stale.
type Resolver struct {
	store *store.Store

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

// New builds a resolver backed by s.
func New(s *store.Store) *Resolver {
	return &Resolver{store: s, cache: make(map[cacheKey]cacheEntry)}
}

// Effective returns E(typeID): the merged, Draft-07-shaped schema an
// instance of typeID must satisfy.
func (r *Resolver) Effective(typeID string) (map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cacheKey{id: typeID, gen: r.store.Generation()}
	if entry, ok := r.cache[key]; ok {
		return entry.schema, entry.err
	}

	schema, err := r.resolve(typeID, map[string]bool{})
	r.cache[key] = cacheEntry{schema: schema, err: err}
	return schema, err
}

// resolve computes E(id), recursing into ancestors with a shared
// in-progress set so any edge kind closing a cycle is caught immediately.
func (r *Resolver) resolve(id string, visiting map[string]bool) (map[string]any, error) {
	if visiting[id] {
		return nil, &CyclicDerivationError{ID: id}
	}
	visiting[id] = true
	defer delete(visiting, id)

	e, err := r.store.GetSchema(id)
	if err != nil {
		return nil, &MissingAncestorError{ID: id}
	}

	overlay, refEdges := splitAllOfOverlay(e.Content)
	merged := cloneSchema(overlay)

	var ancestorIDs []string
	ancestorIDs = append(ancestorIDs, refEdges...)
	if e.GtsID != nil {
		if parent := e.GtsID.Parent(); parent != "" {
			ancestorIDs = append(ancestorIDs, parent)
		}
	}
	ancestorIDs = dedupeStrings(ancestorIDs)

	for _, aid := range ancestorIDs {
		ancestor, aerr := r.resolve(aid, visiting)
		if aerr != nil {
			return nil, aerr
		}
		merged, err = mergeSchemas(id, merged, ancestor)
		if err != nil {
			return nil, err
		}
	}

	return merged, nil
}

// splitAllOfOverlay separates a schema document's own declared constraints
// (the "overlay") from the ids its allOf branches reference. A branch whose
// only key is $ref (or $$ref) is a pure linkage edge; every other branch
// contributes its keywords to the overlay alongside the document's
// top-level keywords.
func splitAllOfOverlay(content map[string]any) (map[string]any, []string) {
	overlay := map[string]any{}
	var refEdges []string

	for k, v := range content {
		if isBookkeepingKey(k) {
			continue
		}
		if k == "allOf" {
			continue
		}
		overlay[k] = v
	}

	if rawAllOf, ok := content["allOf"]; ok {
		if branches, ok := rawAllOf.([]any); ok {
			for _, b := range branches {
				branch, ok := b.(map[string]any)
				if !ok {
					continue
				}
				if ref, isRefOnly := refOnlyBranch(branch); isRefOnly {
					if id := gtsRefTarget(ref); id != "" {
						refEdges = append(refEdges, id)
					}
					continue
				}
				for k, v := range branch {
					overlay[k] = v
				}
			}
		}
	}

	return overlay, refEdges
}

func isBookkeepingKey(k string) bool {
	switch k {
	case "$schema", "$$schema", "$id", "$$id":
		return true
	}
	return false
}

// refOnlyBranch reports whether branch is a pure linkage edge: a map whose
// only key is $ref or $$ref.
func refOnlyBranch(branch map[string]any) (string, bool) {
	if len(branch) != 1 {
		return "", false
	}
	for k, v := range branch {
		if k != "$ref" && k != "$$ref" {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
	return "", false
}

// gtsRefTarget extracts the GTS id from a $ref value, accepting both the
// "gts://" URI form and a bare canonical id; local "#/..." pointers and
// non-GTS URLs (JSON Schema meta-schemas) are not derivation edges.
func gtsRefTarget(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "#") {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ""
	}
	return strings.TrimPrefix(ref, "gts://")
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func cloneSchema(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Ancestors returns the transitive set of ancestor type ids reached from
// typeID by chain and allOf/$ref edges, or an error if the derivation graph
// is cyclic or incomplete. The walk is depth-first; the returned ids are
// sorted lexically, not ordered by derivation distance. Used by the
// refinement engine,
// which must enumerate every ancestor to run ancestor-spanning checks.
func (r *Resolver) Ancestors(typeID string) ([]string, error) {
	var order []string
	seen := map[string]bool{}
	visiting := map[string]bool{}

	var walk func(id string) error
	walk = func(id string) error {
		if visiting[id] {
			return &CyclicDerivationError{ID: id}
		}
		visiting[id] = true
		defer delete(visiting, id)

		e, err := r.store.GetSchema(id)
		if err != nil {
			return &MissingAncestorError{ID: id}
		}

		_, refEdges := splitAllOfOverlay(e.Content)
		var parents []string
		parents = append(parents, refEdges...)
		if e.GtsID != nil {
			if p := e.GtsID.Parent(); p != "" {
				parents = append(parents, p)
			}
		}

		for _, p := range dedupeStrings(parents) {
			if !seen[p] {
				seen[p] = true
				order = append(order, p)
			}
			if err := walk(p); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(typeID); err != nil {
		return nil, err
	}
	sort.Strings(order)
	return order, nil
}
