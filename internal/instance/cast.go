package instance

import (
	"fmt"

	"github.com/gts-registry/gts/internal/gtsid"
)

// CastResult is the wire shape for a cast operation.
type CastResult struct {
	FromID            string         `json:"from"`
	ToID              string         `json:"to"`
	Direction         string         `json:"direction"`
	AddedProperties   []string       `json:"added_properties"`
	RemovedProperties []string       `json:"removed_properties"`
	OK                bool           `json:"ok"`
	CastedEntity      map[string]any `json:"casted_entity,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// Cast transforms instanceID to conform to toSchemaID: both must share the
// same major-version type chain up to a common ancestor and be sibling
// minor versions. Upcast fills defaults E(to) declares for properties the
// instance omits; downcast drops properties E(to) doesn't declare. The
// result is always revalidated against E(to); on failure the partially
// produced document is still returned for diagnostics.
func (e *Engine) Cast(instanceID, toSchemaID string) (*CastResult, error) {
	inst := e.store.Get(instanceID)
	if inst == nil {
		return nil, fmt.Errorf("entity not found: %s", instanceID)
	}
	if inst.IsSchema {
		return nil, fmt.Errorf("source must be an instance: %s", instanceID)
	}
	if inst.SchemaID == "" {
		return nil, fmt.Errorf("instance has no resolvable schema id: %s", instanceID)
	}

	toEnt, err := e.store.GetSchema(toSchemaID)
	if err != nil {
		return nil, err
	}
	fromEnt, err := e.store.GetSchema(inst.SchemaID)
	if err != nil {
		return nil, err
	}
	if !areSiblingMinorVersions(fromEnt.GtsID, toEnt.GtsID) {
		return nil, fmt.Errorf("source and target schemas are not sibling minor versions of the same type chain")
	}

	direction, err := e.inferDirection(inst.SchemaID, toSchemaID)
	if err != nil {
		return nil, err
	}

	effTo, err := e.resolver.Effective(toSchemaID)
	if err != nil {
		return nil, err
	}

	var casted map[string]any
	var added, removed []string
	switch direction {
	case "up":
		casted, added = upcast(deepCopyMap(inst.Content), effTo, "")
	case "down":
		casted, removed = downcast(deepCopyMap(inst.Content), effTo, "")
	default:
		return nil, fmt.Errorf("source and target are not sibling minor versions: %s", direction)
	}

	result := &CastResult{
		FromID:            instanceID,
		ToID:              toSchemaID,
		Direction:         direction,
		AddedProperties:   dedupeSorted(added),
		RemovedProperties: dedupeSorted(removed),
		CastedEntity:      casted,
	}

	if err := e.validateAgainstEffective(casted, toSchemaID, effTo); err != nil {
		result.OK = false
		result.Error = err.Error()
		return result, nil
	}
	result.OK = true
	return result, nil
}

// areSiblingMinorVersions reports whether from and to name the same
// `~`-chain position (every segment but the last identical) with the same
// vendor/package/namespace/type/major on the last segment too, differing
// only in its minor version.
func areSiblingMinorVersions(from, to *gtsid.ID) bool {
	if from == nil || to == nil || len(from.Segments) != len(to.Segments) || len(from.Segments) == 0 {
		return false
	}
	for i := 0; i < len(from.Segments)-1; i++ {
		if !sameSegmentIdentity(from.Segments[i], to.Segments[i]) {
			return false
		}
	}
	last := len(from.Segments) - 1
	return sameSegmentIdentity(from.Segments[last], to.Segments[last])
}

func sameSegmentIdentity(a, b gtsid.Segment) bool {
	return a.Vendor == b.Vendor && a.Package == b.Package && a.Namespace == b.Namespace &&
		a.Type == b.Type && a.Major == b.Major && a.IsType == b.IsType
}

// inferDirection compares the trailing segment's minor version of the two
// schema ids.
func (e *Engine) inferDirection(fromSchemaID, toSchemaID string) (string, error) {
	fromEnt, err := e.store.GetSchema(fromSchemaID)
	if err != nil {
		return "", err
	}
	toEnt, err := e.store.GetSchema(toSchemaID)
	if err != nil {
		return "", err
	}
	if fromEnt.GtsID == nil || toEnt.GtsID == nil || len(fromEnt.GtsID.Segments) == 0 || len(toEnt.GtsID.Segments) == 0 {
		return "unknown", nil
	}
	fromSeg := fromEnt.GtsID.Segments[len(fromEnt.GtsID.Segments)-1]
	toSeg := toEnt.GtsID.Segments[len(toEnt.GtsID.Segments)-1]
	// A segment without a minor version counts as minor 0.
	fromMinor, toMinor := 0, 0
	if fromSeg.Minor != nil {
		fromMinor = *fromSeg.Minor
	}
	if toSeg.Minor != nil {
		toMinor = *toSeg.Minor
	}
	switch {
	case toMinor > fromMinor:
		return "up", nil
	case toMinor < fromMinor:
		return "down", nil
	default:
		return "none", nil
	}
}

// upcast shallow-merges E(to)'s declared defaults into instance for any
// property it omits, recursing into nested objects and arrays of objects.
func upcast(inst map[string]any, eff map[string]any, base string) (map[string]any, []string) {
	var added []string
	props, _ := eff["properties"].(map[string]any)

	for prop, rawSub := range props {
		sub, ok := rawSub.(map[string]any)
		if !ok {
			continue
		}
		if _, exists := inst[prop]; !exists {
			if def, hasDefault := sub["default"]; hasDefault {
				inst[prop] = deepCopyValue(def)
				added = append(added, joinPath(base, prop))
			}
			continue
		}
		switch getString(sub, "type") {
		case "object":
			if valMap, ok := inst[prop].(map[string]any); ok {
				merged, addedSub := upcast(valMap, sub, joinPath(base, prop))
				inst[prop] = merged
				added = append(added, addedSub...)
			}
		case "array":
			if valArr, ok := inst[prop].([]any); ok {
				items, _ := sub["items"].(map[string]any)
				if items != nil && getString(items, "type") == "object" {
					for i, item := range valArr {
						if itemMap, ok := item.(map[string]any); ok {
							merged, addedSub := upcast(itemMap, items, fmt.Sprintf("%s[%d]", joinPath(base, prop), i))
							valArr[i] = merged
							added = append(added, addedSub...)
						}
					}
				}
			}
		}
	}
	return inst, added
}

// downcast drops every property E(to) doesn't declare, recursing the same
// way upcast does.
func downcast(inst map[string]any, eff map[string]any, base string) (map[string]any, []string) {
	var removed []string
	props, _ := eff["properties"].(map[string]any)

	for key := range inst {
		if _, declared := props[key]; !declared {
			delete(inst, key)
			removed = append(removed, joinPath(base, key))
		}
	}

	for prop, rawSub := range props {
		sub, ok := rawSub.(map[string]any)
		if !ok {
			continue
		}
		val, exists := inst[prop]
		if !exists {
			continue
		}
		switch getString(sub, "type") {
		case "object":
			if valMap, ok := val.(map[string]any); ok {
				pruned, removedSub := downcast(valMap, sub, joinPath(base, prop))
				inst[prop] = pruned
				removed = append(removed, removedSub...)
			}
		case "array":
			if valArr, ok := val.([]any); ok {
				items, _ := sub["items"].(map[string]any)
				if items != nil && getString(items, "type") == "object" {
					for i, item := range valArr {
						if itemMap, ok := item.(map[string]any); ok {
							pruned, removedSub := downcast(itemMap, items, fmt.Sprintf("%s[%d]", joinPath(base, prop), i))
							valArr[i] = pruned
							removed = append(removed, removedSub...)
						}
					}
				}
			}
		}
	}
	return inst, removed
}

func joinPath(base, prop string) string {
	if base == "" {
		return prop
	}
	return base + "." + prop
}

func getString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

func dedupeSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j] < out[i] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
