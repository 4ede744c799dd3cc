package instance

import (
	"fmt"
)

// CompatibilityResult reports whether two schema versions can read each
// other's data, independent of whether either is a sound refinement of the
// other (that's RefinementEngine's job; this is a pairwise data-migration
// check in the spirit of Avro/Protobuf schema evolution).
type CompatibilityResult struct {
	OldID                string   `json:"old"`
	NewID                string   `json:"new"`
	Direction            string   `json:"direction"`
	IsBackwardCompatible bool     `json:"is_backward_compatible"`
	IsForwardCompatible  bool     `json:"is_forward_compatible"`
	IsFullyCompatible    bool     `json:"is_fully_compatible"`
	BackwardErrors       []string `json:"backward_errors"`
	ForwardErrors        []string `json:"forward_errors"`
}

// CheckCompatibility compares the effective schemas of oldSchemaID and
// newSchemaID: backward compatibility means new consumers can still read
// old data (no newly required properties, no narrowed bounds/enums);
// forward compatibility means old consumers can still read new data (no
// removed required properties, no widened bounds/enums).
func (e *Engine) CheckCompatibility(oldSchemaID, newSchemaID string) (*CompatibilityResult, error) {
	oldEff, err := e.resolver.Effective(oldSchemaID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", oldSchemaID, err)
	}
	newEff, err := e.resolver.Effective(newSchemaID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", newSchemaID, err)
	}

	direction, err := e.inferDirection(oldSchemaID, newSchemaID)
	if err != nil {
		return nil, err
	}

	backwardOK, backwardErrs := compareSchemas(oldEff, newEff, true, "")
	forwardOK, forwardErrs := compareSchemas(oldEff, newEff, false, "")

	return &CompatibilityResult{
		OldID:                oldSchemaID,
		NewID:                newSchemaID,
		Direction:            direction,
		IsBackwardCompatible: backwardOK,
		IsForwardCompatible:  forwardOK,
		IsFullyCompatible:    backwardOK && forwardOK,
		BackwardErrors:       backwardErrs,
		ForwardErrors:        forwardErrs,
	}, nil
}

// compareSchemas walks properties common to both effective schemas,
// checking constraint compatibility in the direction checkBackward names.
func compareSchemas(oldSchema, newSchema map[string]any, checkBackward bool, path string) (bool, []string) {
	var errs []string

	oldReq := asStringSet(oldSchema["required"])
	newReq := asStringSet(newSchema["required"])
	if checkBackward {
		for k := range newReq {
			if !oldReq[k] {
				errs = append(errs, fmt.Sprintf("%s: added required property %q", path, k))
			}
		}
	} else {
		for k := range oldReq {
			if !newReq[k] {
				errs = append(errs, fmt.Sprintf("%s: removed required property %q", path, k))
			}
		}
	}

	oldProps, _ := oldSchema["properties"].(map[string]any)
	newProps, _ := newSchema["properties"].(map[string]any)
	for prop, oldRaw := range oldProps {
		newRaw, ok := newProps[prop]
		if !ok {
			continue
		}
		oldSub, ok1 := oldRaw.(map[string]any)
		newSub, ok2 := newRaw.(map[string]any)
		if !ok1 || !ok2 {
			continue
		}

		subPath := joinPath(path, prop)
		oldType := getString(oldSub, "type")
		newType := getString(newSub, "type")
		if oldType != "" && newType != "" && oldType != newType {
			errs = append(errs, fmt.Sprintf("%s: type changed from %s to %s", subPath, oldType, newType))
		}

		errs = append(errs, compareEnum(oldSub, newSub, checkBackward, subPath)...)
		errs = append(errs, compareBounds(oldSub, newSub, checkBackward, subPath)...)

		if oldType == "object" && newType == "object" {
			if _, subErrs := compareSchemas(oldSub, newSub, checkBackward, subPath); len(subErrs) > 0 {
				errs = append(errs, subErrs...)
			}
		}
	}

	return len(errs) == 0, errs
}

func compareEnum(oldSub, newSub map[string]any, checkBackward bool, path string) []string {
	oldEnum, ok1 := oldSub["enum"].([]any)
	newEnum, ok2 := newSub["enum"].([]any)
	if !ok1 || !ok2 {
		return nil
	}
	oldSet := map[string]bool{}
	for _, v := range oldEnum {
		oldSet[fmt.Sprintf("%v", v)] = true
	}
	newSet := map[string]bool{}
	for _, v := range newEnum {
		newSet[fmt.Sprintf("%v", v)] = true
	}

	var errs []string
	if checkBackward {
		for v := range oldSet {
			if !newSet[v] {
				errs = append(errs, fmt.Sprintf("%s: removed enum value %s", path, v))
			}
		}
	} else {
		for v := range newSet {
			if !oldSet[v] {
				errs = append(errs, fmt.Sprintf("%s: added enum value %s", path, v))
			}
		}
	}
	return errs
}

func compareBounds(oldSub, newSub map[string]any, checkBackward bool, path string) []string {
	var errs []string
	for _, lower := range []string{"minimum", "exclusiveMinimum", "minLength", "minItems"} {
		errs = append(errs, compareBound(oldSub, newSub, lower, checkBackward, true, path)...)
	}
	for _, upper := range []string{"maximum", "exclusiveMaximum", "maxLength", "maxItems"} {
		errs = append(errs, compareBound(oldSub, newSub, upper, checkBackward, false, path)...)
	}
	return errs
}

// compareBound flags a bound change that would break the direction being
// checked: backward compatibility forbids tightening (new consumers
// couldn't read old data that satisfied the looser old bound); forward
// compatibility forbids loosening.
func compareBound(oldSub, newSub map[string]any, key string, checkBackward, isLowerBound bool, path string) []string {
	oldVal, oldHas := asFloat(oldSub[key])
	newVal, newHas := asFloat(newSub[key])
	if !oldHas || !newHas {
		return nil
	}
	tightened := (isLowerBound && newVal > oldVal) || (!isLowerBound && newVal < oldVal)
	loosened := (isLowerBound && newVal < oldVal) || (!isLowerBound && newVal > oldVal)

	if checkBackward && tightened {
		return []string{fmt.Sprintf("%s: %s tightened from %v to %v", path, key, oldVal, newVal)}
	}
	if !checkBackward && loosened {
		return []string{fmt.Sprintf("%s: %s loosened from %v to %v", path, key, oldVal, newVal)}
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

func asStringSet(v any) map[string]bool {
	set := map[string]bool{}
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok {
				set[s] = true
			}
		}
	}
	return set
}
