// Package refine decides whether a derived schema is a sound refinement of
// every ancestor it derives from: every value the derived schema accepts
// must also be accepted by each ancestor's effective schema. It compares
// the derived schema's own overlay against each ancestor keyword by keyword
// rather than re-merging (that's internal/graph's job).
package refine

import (
	"fmt"

	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/store"
)

// Violation reports one monotonicity rule broken by a derived overlay
// against a named ancestor.
type Violation struct {
	Ancestor string
	Path     string
	Reason   string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("refinement of %s at %s: %s", v.Ancestor, v.Path, v.Reason)
}

// OrphanTraitsError reports x-gts-traits declared without any ancestor
// declaring x-gts-traits-schema.
type OrphanTraitsError struct {
	ID string
}

func (e *OrphanTraitsError) Error() string {
	return fmt.Sprintf("x-gts-traits declared at %s with no x-gts-traits-schema in its chain", e.ID)
}

// ShapeError reports a derived document that doesn't use the required
// "allOf: [{$ref: parent}, overlay]" authoring shape.
type ShapeError struct {
	ID     string
	Reason string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("derivation shape error at %s: %s", e.ID, e.Reason)
}

// Engine validates schema derivations and trait narrowing against a store
// and the GraphResolver that computes ancestors' effective schemas.
type Engine struct {
	store    *store.Store
	resolver *graph.Resolver
}

// New builds a refinement engine sharing resolver's memoised effective
// schemas, so a validate_schema call doesn't recompute ancestor merges the
// resolver has already cached.
func New(s *store.Store, r *graph.Resolver) *Engine {
	return &Engine{store: s, resolver: r}
}

// ValidateSchema decides whether schemaID is a sound refinement of every
// ancestor reached by chain and allOf/$ref edges, and that its trait
// declarations (if any) are consistent. It returns the first violation
// found, or nil.
func (e *Engine) ValidateSchema(schemaID string) error {
	ent, err := e.store.GetSchema(schemaID)
	if err != nil {
		return err
	}

	overlay, hasParent, shapeErr := splitDerivationShape(ent.Content)
	if shapeErr != nil {
		return shapeErr
	}
	if !hasParent {
		// An independent schema (no allOf/$ref derivation edge) has nothing
		// to refine against.
		return e.validateTraits(schemaID)
	}

	ancestors, err := e.resolver.Ancestors(schemaID)
	if err != nil {
		return err
	}

	for _, aid := range ancestors {
		aeff, err := e.resolver.Effective(aid)
		if err != nil {
			return err
		}
		if v := checkRefinement(schemaID, overlay, aeff, ""); v != nil {
			v.Ancestor = aid
			return v
		}
	}

	return e.validateTraits(schemaID)
}

// splitDerivationShape enforces rule 4: a derived schema must be authored
// as allOf: [{$ref: parent-or-ancestor}, overlay-object]. It returns the
// overlay half; hasParent is false for a schema with no allOf derivation
// edge at all (which is simply an independent schema, not an error).
func splitDerivationShape(content map[string]any) (map[string]any, bool, error) {
	rawAllOf, ok := content["allOf"]
	if !ok {
		return stripBookkeeping(content), false, nil
	}
	branches, ok := rawAllOf.([]any)
	if !ok || len(branches) == 0 {
		return nil, false, &ShapeError{Reason: "allOf present but not a non-empty array"}
	}

	var refBranches, overlayBranches int
	overlay := map[string]any{}
	for k, v := range content {
		if isBookkeepingKey(k) || k == "allOf" {
			continue
		}
		overlay[k] = v
	}

	for _, b := range branches {
		branch, ok := b.(map[string]any)
		if !ok {
			return nil, false, &ShapeError{Reason: "allOf branch is not an object"}
		}
		if isRefOnlyBranch(branch) {
			refBranches++
			continue
		}
		overlayBranches++
		for k, v := range branch {
			overlay[k] = v
		}
	}

	if refBranches == 0 {
		return nil, false, nil
	}
	if refBranches > 1 {
		return nil, false, &ShapeError{Reason: "multiple $ref linkage branches in allOf"}
	}
	if overlayBranches > 1 {
		return nil, false, &ShapeError{Reason: "more than one non-$ref branch in allOf; expected a single overlay"}
	}

	return overlay, true, nil
}

func isRefOnlyBranch(branch map[string]any) bool {
	if len(branch) != 1 {
		return false
	}
	for k := range branch {
		return k == "$ref" || k == "$$ref"
	}
	return false
}

func isBookkeepingKey(k string) bool {
	switch k {
	case "$schema", "$$schema", "$id", "$$id":
		return true
	}
	return false
}

func stripBookkeeping(content map[string]any) map[string]any {
	out := map[string]any{}
	for k, v := range content {
		if isBookkeepingKey(k) {
			continue
		}
		out[k] = v
	}
	return out
}

// checkRefinement applies the monotonicity rules to overlay against
// ancestor's effective schema at path, returning the first violation.
func checkRefinement(schemaID string, overlay, ancestor map[string]any, path string) *Violation {
	if v := checkType(overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "minimum", false); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "exclusiveMinimum", false); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "minLength", false); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "minItems", false); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "maximum", true); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "exclusiveMaximum", true); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "maxLength", true); v != nil {
		return v
	}
	if v := checkNumericBound(overlay, ancestor, path, "maxItems", true); v != nil {
		return v
	}
	if v := checkEnumConst(overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkPattern(overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkAdditionalProperties(overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkRequired(overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkProperties(schemaID, overlay, ancestor, path); v != nil {
		return v
	}
	if v := checkDroppedConstraint(overlay, ancestor, path); v != nil {
		return v
	}
	return nil
}

func asStringSet(v any) map[string]bool {
	set := map[string]bool{}
	switch t := v.(type) {
	case string:
		set[t] = true
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}

// checkType enforces narrowing-only: the derived type set must be a subset
// of the ancestor's.
func checkType(overlay, ancestor map[string]any, path string) *Violation {
	ancType, hasAnc := ancestor["type"]
	if !hasAnc {
		return nil
	}
	ownType, hasOwn := overlay["type"]
	if !hasOwn {
		return nil // omitted: inherits the ancestor's type, not a widening
	}
	ancSet, ownSet := asStringSet(ancType), asStringSet(ownType)
	for t := range ownSet {
		if !ancSet[t] {
			return &Violation{Path: path + ".type", Reason: fmt.Sprintf("widens type to include %q, not present in ancestor", t)}
		}
	}
	return nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

// checkNumericBound enforces tightening-only for one bound keyword. upper
// indicates whether key is an upper bound (derived must be <=) or a lower
// bound (derived must be >=). Omission in the derived overlay inherits the
// ancestor's bound and is never a violation.
func checkNumericBound(overlay, ancestor map[string]any, path, key string, upper bool) *Violation {
	ancRaw, hasAnc := ancestor[key]
	if !hasAnc {
		return nil
	}
	ancVal, ok := asFloat(ancRaw)
	if !ok {
		return nil
	}
	ownRaw, hasOwn := overlay[key]
	if !hasOwn {
		return nil
	}
	ownVal, ok := asFloat(ownRaw)
	if !ok {
		return nil
	}
	if upper && ownVal > ancVal {
		return &Violation{Path: path + "." + key, Reason: fmt.Sprintf("%s=%v loosens ancestor bound %v", key, ownVal, ancVal)}
	}
	if !upper && ownVal < ancVal {
		return &Violation{Path: path + "." + key, Reason: fmt.Sprintf("%s=%v loosens ancestor bound %v", key, ownVal, ancVal)}
	}
	return nil
}

func enumOrConstValues(schema map[string]any) ([]any, bool) {
	if c, ok := schema["const"]; ok {
		return []any{c}, true
	}
	if e, ok := schema["enum"].([]any); ok {
		return e, true
	}
	return nil, false
}

// checkEnumConst enforces subset-of-ancestor-enum and const-compatibility.
func checkEnumConst(overlay, ancestor map[string]any, path string) *Violation {
	ancVals, ancHas := enumOrConstValues(ancestor)
	if !ancHas {
		return nil
	}
	ancSet := map[string]bool{}
	for _, v := range ancVals {
		ancSet[fmt.Sprintf("%v", v)] = true
	}

	if c, ok := overlay["const"]; ok {
		if !ancSet[fmt.Sprintf("%v", c)] {
			return &Violation{Path: path + ".const", Reason: "const value not permitted by ancestor enum/const"}
		}
		return nil
	}
	ownVals, ownHas := overlay["enum"].([]any)
	if !ownHas {
		return nil
	}
	for _, v := range ownVals {
		if !ancSet[fmt.Sprintf("%v", v)] {
			return &Violation{Path: path + ".enum", Reason: fmt.Sprintf("enum value %v not in ancestor enum", v)}
		}
	}
	return nil
}

// checkPattern requires the derived pattern be identical to the ancestor's;
// the engine does not attempt to prove regex implication, so a differing
// pattern is rejected even if it could plausibly be a subset.
func checkPattern(overlay, ancestor map[string]any, path string) *Violation {
	ancPat, ok := ancestor["pattern"].(string)
	if !ok || ancPat == "" {
		return nil
	}
	ownPat, hasOwn := overlay["pattern"].(string)
	if !hasOwn {
		return nil
	}
	if ownPat != ancPat {
		return &Violation{Path: path + ".pattern", Reason: "derived pattern differs from ancestor; implication is not proven"}
	}
	return nil
}

// checkAdditionalProperties: once false at an ancestor, derived may not set
// true; omitting it adopts the closed policy and passes.
func checkAdditionalProperties(overlay, ancestor map[string]any, path string) *Violation {
	ancAP, ok := ancestor["additionalProperties"].(bool)
	if !ok || ancAP {
		return nil
	}
	ownAP, hasOwn := overlay["additionalProperties"].(bool)
	if hasOwn && ownAP {
		return &Violation{Path: path + ".additionalProperties", Reason: "sets additionalProperties=true over an ancestor's false"}
	}
	return nil
}

// checkRequired: derived may only add required fields, never remove them.
// Since the refined document is authored as an allOf union with the
// ancestor, a derived overlay that simply doesn't restate a required field
// does not remove it — only an explicit narrower overlay matters here, and
// there is no JSON Schema keyword to explicitly "un-require" a field, so
// this check only rejects a programmer error we can actually observe: the
// overlay cannot express removal, so there is nothing further to enforce
// beyond presence, which is already implied by the allOf union.
func checkRequired(overlay, ancestor map[string]any, path string) *Violation {
	return nil
}

// checkProperties recurses into keys present on both sides; a key new in
// the derived overlay is rejected only if the ancestor closed the object
// with additionalProperties=false.
func checkProperties(schemaID string, overlay, ancestor map[string]any, path string) *Violation {
	ancProps, _ := ancestor["properties"].(map[string]any)
	ownProps, _ := overlay["properties"].(map[string]any)
	if len(ancProps) == 0 && len(ownProps) == 0 {
		return nil
	}

	ancAP, isBool := ancestor["additionalProperties"].(bool)
	ancIsClosed := isBool && !ancAP

	for k, ownSub := range ownProps {
		ownSubSchema, ok := ownSub.(map[string]any)
		if !ok {
			continue
		}
		ancSub, inAncestor := ancProps[k]
		if !inAncestor {
			if ancIsClosed {
				return &Violation{Path: path + ".properties." + k, Reason: "extends properties on an object closed by an ancestor"}
			}
			continue
		}
		ancSubSchema, ok := ancSub.(map[string]any)
		if !ok {
			continue
		}
		if v := checkRefinement(schemaID, ownSubSchema, ancSubSchema, path+".properties."+k); v != nil {
			return v
		}
	}
	return nil
}

// checkDroppedConstraint catches the chief test-corpus failure mode: a
// derived overlay that redeclares a property's type but silently drops a
// sibling constraint (e.g. maxLength) the ancestor declared on that same
// property.
func checkDroppedConstraint(overlay, ancestor map[string]any, path string) *Violation {
	ancProps, _ := ancestor["properties"].(map[string]any)
	ownProps, _ := overlay["properties"].(map[string]any)
	for k, ownSub := range ownProps {
		ownSubSchema, ok := ownSub.(map[string]any)
		if !ok {
			continue
		}
		if _, redeclaresType := ownSubSchema["type"]; !redeclaresType {
			continue
		}
		ancSub, ok := ancProps[k]
		if !ok {
			continue
		}
		ancSubSchema, ok := ancSub.(map[string]any)
		if !ok {
			continue
		}
		for _, bound := range []string{"maxLength", "minLength", "maxItems", "minItems", "maximum", "minimum", "pattern", "enum"} {
			if _, ancHas := ancSubSchema[bound]; !ancHas {
				continue
			}
			if _, ownHas := ownSubSchema[bound]; !ownHas {
				return &Violation{
					Path:   path + ".properties." + k + "." + bound,
					Reason: fmt.Sprintf("redeclares type %q without carrying over ancestor's %s", ownSubSchema["type"], bound),
				}
			}
		}
	}
	return nil
}
