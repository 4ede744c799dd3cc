package graph

import (
	"fmt"
	"sort"
)

// mergeSchemas computes the structural intersection of overlay (a node's
// own declared constraints) with ancestor (an already-effective ancestor
// schema), keyword by keyword. path is the property path used in
// contradiction diagnostics.
func mergeSchemas(path string, overlay, ancestor map[string]any) (map[string]any, error) {
	out := cloneSchema(overlay)

	if err := mergeType(path, out, ancestor); err != nil {
		return nil, err
	}
	mergeProperties(out, ancestor)
	mergeRequired(out, ancestor)
	mergeAdditionalProperties(out, ancestor)
	if err := mergeEnumConst(path, out, ancestor); err != nil {
		return nil, err
	}
	mergeNumericBound(out, ancestor, "minimum", maxNumeric)
	mergeNumericBound(out, ancestor, "exclusiveMinimum", maxNumeric)
	mergeNumericBound(out, ancestor, "minLength", maxNumeric)
	mergeNumericBound(out, ancestor, "minItems", maxNumeric)
	mergeNumericBound(out, ancestor, "maximum", minNumeric)
	mergeNumericBound(out, ancestor, "exclusiveMaximum", minNumeric)
	mergeNumericBound(out, ancestor, "maxLength", minNumeric)
	mergeNumericBound(out, ancestor, "maxItems", minNumeric)
	mergePattern(out, ancestor)
	if err := mergeItems(path, out, ancestor); err != nil {
		return nil, err
	}

	return out, nil
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
	case []string:
		for _, s := range t {
			set[s] = true
		}
	}
	return set
}

func setToSortedSlice(set map[string]bool) []any {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

// mergeType intersects type sets; an empty result after both sides declared
// a type is a contradiction.
func mergeType(path string, out, ancestor map[string]any) error {
	ancType, hasAnc := ancestor["type"]
	ownType, hasOwn := out["type"]
	if !hasAnc {
		return nil
	}
	if !hasOwn {
		out["type"] = ancType
		return nil
	}

	ancSet := asStringSet(ancType)
	ownSet := asStringSet(ownType)
	inter := map[string]bool{}
	for t := range ownSet {
		if ancSet[t] {
			inter[t] = true
		}
	}
	if len(inter) == 0 {
		return &ContradictionError{Path: path, Reason: "type intersection is empty"}
	}
	if len(inter) == 1 {
		for t := range inter {
			out["type"] = t
		}
		return nil
	}
	out["type"] = setToSortedSlice(inter)
	return nil
}

func asSchemaMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// mergeProperties unions property keys, recursing the merge into any key
// present on both sides.
func mergeProperties(out, ancestor map[string]any) {
	ancProps := asSchemaMap(ancestor["properties"])
	if len(ancProps) == 0 {
		return
	}

	ownProps := asSchemaMap(out["properties"])
	merged := make(map[string]any, len(ownProps)+len(ancProps))
	for k, v := range ownProps {
		merged[k] = v
	}

	for k, ancSub := range ancProps {
		ancSubSchema := asSchemaMap(ancSub)
		if ownSub, ok := merged[k]; ok {
			if ownSubSchema := asSchemaMap(ownSub); ownSubSchema != nil && ancSubSchema != nil {
				// Best-effort: property-level contradictions don't abort
				// the whole merge, they narrow to an impossible schema.
				m, err := mergeSchemas("properties."+k, ownSubSchema, ancSubSchema)
				if err != nil {
					m = map[string]any{"not": map[string]any{}}
				}
				merged[k] = m
				continue
			}
		}
		merged[k] = ancSub
	}

	out["properties"] = merged
}

// mergeRequired unions the required-field sets.
func mergeRequired(out, ancestor map[string]any) {
	ancReq := asStringSet(ancestor["required"])
	if len(ancReq) == 0 {
		return
	}
	ownReq := asStringSet(out["required"])
	for k := range ancReq {
		ownReq[k] = true
	}
	out["required"] = setToSortedSlice(ownReq)
}

// mergeAdditionalProperties ANDs the closed/open policy; false on either
// side is absorptive.
func mergeAdditionalProperties(out, ancestor map[string]any) {
	ancAP, hasAnc := ancestor["additionalProperties"]
	if !hasAnc {
		return
	}
	ownAP, hasOwn := out["additionalProperties"]
	if !hasOwn {
		out["additionalProperties"] = ancAP
		return
	}
	ancBool, ancIsBool := ancAP.(bool)
	ownBool, ownIsBool := ownAP.(bool)
	if ancIsBool && ownIsBool {
		out["additionalProperties"] = ancBool && ownBool
		return
	}
	// A schema-valued additionalProperties on either side keeps the
	// tighter (own) declaration; false still wins if present on the other.
	if ancIsBool && !ancBool {
		out["additionalProperties"] = false
	}
}

// mergeEnumConst intersects enum sets (const is a singleton enum); an empty
// intersection after both sides constrain values is a contradiction.
func mergeEnumConst(path string, out, ancestor map[string]any) error {
	ancVals, ancHas := enumOrConstValues(ancestor)
	if !ancHas {
		return nil
	}
	ownVals, ownHas := enumOrConstValues(out)
	if !ownHas {
		out["enum"] = ancVals
		return nil
	}

	ancSet := map[any]bool{}
	for _, v := range ancVals {
		ancSet[fmt.Sprintf("%v", v)] = true
	}
	var inter []any
	for _, v := range ownVals {
		if ancSet[fmt.Sprintf("%v", v)] {
			inter = append(inter, v)
		}
	}
	if len(inter) == 0 {
		return &ContradictionError{Path: path, Reason: "enum/const intersection is empty"}
	}
	delete(out, "const")
	out["enum"] = inter
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

func maxNumeric(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minNumeric(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
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

// mergeNumericBound composes a bound keyword using combine (max for lower
// bounds, min for upper bounds): if only one side declares it, it's
// inherited unchanged; if both do, the tighter of the two wins.
func mergeNumericBound(out, ancestor map[string]any, key string, combine func(a, b float64) float64) {
	ancRaw, ancHas := ancestor[key]
	if !ancHas {
		return
	}
	ancVal, ok := asFloat(ancRaw)
	if !ok {
		return
	}
	ownRaw, ownHas := out[key]
	if !ownHas {
		out[key] = ancVal
		return
	}
	ownVal, ok := asFloat(ownRaw)
	if !ok {
		return
	}
	out[key] = combine(ownVal, ancVal)
}

// mergePattern ANDs pattern constraints. JSON Schema's `pattern` keyword is
// singular, so a second, distinct pattern from an ancestor is folded into
// an `allOf` branch — which is itself standard AND semantics a Draft-07
// validator understands natively.
func mergePattern(out, ancestor map[string]any) {
	ancPat, ok := ancestor["pattern"].(string)
	if !ok || ancPat == "" {
		return
	}
	ownPat, ownHas := out["pattern"].(string)
	if !ownHas {
		out["pattern"] = ancPat
		return
	}
	if ownPat == ancPat {
		return
	}

	extra, _ := out["allOf"].([]any)
	extra = append(extra, map[string]any{"pattern": ancPat})
	out["allOf"] = extra
}

// mergeItems recurses into array item schemas the same way properties do.
func mergeItems(path string, out, ancestor map[string]any) error {
	ancItems := asSchemaMap(ancestor["items"])
	if ancItems == nil {
		return nil
	}
	ownItems := asSchemaMap(out["items"])
	if ownItems == nil {
		out["items"] = ancItems
		return nil
	}
	merged, err := mergeSchemas(path+".items", ownItems, ancItems)
	if err != nil {
		return err
	}
	out["items"] = merged
	return nil
}
