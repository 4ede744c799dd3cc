package refine

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validateTraits implements the x-gts-traits-schema / x-gts-traits contract:
// the effective trait schema ET(T) is the merge (see mergeTraitSchemas) of
// every x-gts-traits-schema declared up the chain; the effective trait value
// object is the leaf-wins shallow merge of every x-gts-traits declared,
// with ET(T)'s declared defaults filling anything still missing.
func (e *Engine) validateTraits(schemaID string) error {
	chain, err := e.chainRootToLeaf(schemaID)
	if err != nil {
		return err
	}

	var traitSchemas []map[string]any
	var traitValues []map[string]any
	anyTraitsDeclared := false

	for _, id := range chain {
		ent, err := e.store.GetSchema(id)
		if err != nil {
			return err
		}
		if ts, ok := ent.Content["x-gts-traits-schema"].(map[string]any); ok {
			traitSchemas = append(traitSchemas, ts)
		}
		if tv, ok := ent.Content["x-gts-traits"].(map[string]any); ok {
			traitValues = append(traitValues, tv)
			anyTraitsDeclared = true
		}
	}

	if len(traitSchemas) == 0 {
		if anyTraitsDeclared {
			return &OrphanTraitsError{ID: schemaID}
		}
		return nil
	}

	if err := e.checkTraitSchemaNarrowing(schemaID, chain); err != nil {
		return err
	}

	et := mergeTraitSchemas(traitSchemas)

	merged := map[string]any{}
	for i := len(traitValues) - 1; i >= 0; i-- {
		for k, v := range traitValues[i] {
			if _, already := merged[k]; !already {
				merged[k] = v
			}
		}
	}
	fillTraitDefaults(merged, et)

	return validateAgainstTraitSchema(merged, et)
}

// chainRootToLeaf returns the `~`-chain from the outermost ancestor to
// schemaID itself, root first.
func (e *Engine) chainRootToLeaf(schemaID string) ([]string, error) {
	ent, err := e.store.GetSchema(schemaID)
	if err != nil {
		return nil, err
	}
	var chain []string
	if ent.GtsID != nil {
		parents := ent.GtsID.ParentChain() // closest-first
		for i := len(parents) - 1; i >= 0; i-- {
			chain = append(chain, parents[i])
		}
	}
	chain = append(chain, schemaID)
	return chain, nil
}

// checkTraitSchemaNarrowing requires that each level's own
// x-gts-traits-schema, if any, is a sound refinement of the trait schema
// accumulated from every outer ancestor level before it.
func (e *Engine) checkTraitSchemaNarrowing(schemaID string, chain []string) error {
	var accum []map[string]any
	for _, id := range chain {
		ent, err := e.store.GetSchema(id)
		if err != nil {
			return err
		}
		ts, ok := ent.Content["x-gts-traits-schema"].(map[string]any)
		if !ok {
			continue
		}
		if len(accum) > 0 {
			ancestorET := mergeTraitSchemas(accum)
			if v := checkRefinement(schemaID, ts, ancestorET, "x-gts-traits-schema"); v != nil {
				v.Ancestor = id
				return v
			}
		}
		accum = append(accum, ts)
	}
	return nil
}

// mergeTraitSchemas folds a root-to-leaf list of trait-schema fragments
// into one schema: properties are unioned by key, and where two levels
// declare the same key the inner level's sub-schema replaces the outer one
// (the two are not merged); required is unioned; additionalProperties is
// ANDed (false absorptive); the outermost declared type is kept. No other
// top-level keyword is carried into the result.
func mergeTraitSchemas(schemas []map[string]any) map[string]any {
	out := map[string]any{}
	for _, s := range schemas {
		out = mergeTraitSchemaInto(out, s)
	}
	return out
}

func mergeTraitSchemaInto(out, next map[string]any) map[string]any {
	merged := map[string]any{}
	for k, v := range out {
		merged[k] = v
	}

	ownProps, _ := merged["properties"].(map[string]any)
	nextProps, _ := next["properties"].(map[string]any)
	if len(nextProps) > 0 {
		props := map[string]any{}
		for k, v := range ownProps {
			props[k] = v
		}
		for k, v := range nextProps {
			props[k] = v
		}
		merged["properties"] = props
	}

	req := asStringSet(merged["required"])
	for k := range asStringSet(next["required"]) {
		req[k] = true
	}
	if len(req) > 0 {
		reqSlice := make([]any, 0, len(req))
		for k := range req {
			reqSlice = append(reqSlice, k)
		}
		merged["required"] = reqSlice
	}

	if ap, ok := next["additionalProperties"].(bool); ok {
		if cur, has := merged["additionalProperties"].(bool); has {
			merged["additionalProperties"] = cur && ap
		} else {
			merged["additionalProperties"] = ap
		}
	}

	if t, ok := next["type"]; ok {
		if _, has := merged["type"]; !has {
			merged["type"] = t
		}
	}

	return merged
}

// fillTraitDefaults fills any property ET declares a "default" for, that
// merged doesn't already set.
func fillTraitDefaults(merged, et map[string]any) {
	props, _ := et["properties"].(map[string]any)
	for k, raw := range props {
		if _, set := merged[k]; set {
			continue
		}
		sub, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if def, ok := sub["default"]; ok {
			merged[k] = def
		}
	}
}

// validateAgainstTraitSchema compiles et as a Draft-07 schema and runs the
// merged trait value object through it, so type, enum/const and numeric
// bounds on ET(T)'s per-property schemas are enforced, not just required
// presence and closedness.
func validateAgainstTraitSchema(values, et map[string]any) error {
	const traitSchemaID = "urn:gts:trait-schema"

	schema := make(map[string]any, len(et)+1)
	for k, v := range et {
		schema[k] = v
	}
	schema["$id"] = traitSchemaID

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(traitSchemaID, schema); err != nil {
		return fmt.Errorf("compile effective trait schema: %w", err)
	}
	compiled, err := compiler.Compile(traitSchemaID)
	if err != nil {
		return fmt.Errorf("compile effective trait schema: %w", err)
	}
	if err := compiled.Validate(values); err != nil {
		return fmt.Errorf("trait value object does not satisfy effective trait schema: %w", err)
	}
	return nil
}
