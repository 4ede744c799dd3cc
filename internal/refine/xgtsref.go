package refine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gts-registry/gts/internal/gtsid"
)

// RefTargetError reports an x-gts-ref site whose value doesn't resolve.
type RefTargetError struct {
	Path   string
	Reason string
}

func (e *RefTargetError) Error() string {
	return fmt.Sprintf("x-gts-ref at %s: %s", e.Path, e.Reason)
}

// CheckXGtsRef walks schema (an effective or raw schema fragment) alongside
// doc (the instance value at the same position) and validates every
// x-gts-ref site found, composing oneOf/anyOf/allOf per standard JSON
// Schema combinator semantics: oneOf requires exactly one branch's
// x-gts-ref to hold, anyOf at least one, allOf all. root is the top-level
// schema document the walk started from; JSON-Pointer-form x-gts-ref values
// resolve against it regardless of how deep the current site is nested, so
// it is threaded unchanged through every recursive call.
func (e *Engine) CheckXGtsRef(root, schema map[string]any, doc any, path string) error {
	if schema == nil {
		return nil
	}

	if ref, ok := schema["x-gts-ref"].(string); ok {
		s, ok := doc.(string)
		if !ok {
			return &RefTargetError{Path: path, Reason: "x-gts-ref site value is not a string"}
		}
		if err := e.resolveRef(root, ref, s); err != nil {
			return &RefTargetError{Path: path, Reason: err.Error()}
		}
	}

	if err := e.checkCombinator(root, schema, doc, path, "allOf", combinatorAll); err != nil {
		return err
	}
	if err := e.checkCombinator(root, schema, doc, path, "anyOf", combinatorAny); err != nil {
		return err
	}
	if err := e.checkCombinator(root, schema, doc, path, "oneOf", combinatorOne); err != nil {
		return err
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		docMap, _ := doc.(map[string]any)
		for k, sub := range props {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				continue
			}
			childVal, has := docMap[k]
			if !has {
				continue
			}
			if err := e.CheckXGtsRef(root, subSchema, childVal, path+"."+k); err != nil {
				return err
			}
		}
	}

	if items, ok := schema["items"].(map[string]any); ok {
		docList, _ := doc.([]any)
		for i, v := range docList {
			if err := e.CheckXGtsRef(root, items, v, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}

	return nil
}

type combinatorMode int

const (
	combinatorAll combinatorMode = iota
	combinatorAny
	combinatorOne
)

func (e *Engine) checkCombinator(root, schema map[string]any, doc any, path, key string, mode combinatorMode) error {
	raw, ok := schema[key]
	if !ok {
		return nil
	}
	branches, ok := raw.([]any)
	if !ok {
		return nil
	}

	satisfied := 0
	var firstErr error
	for i, b := range branches {
		branch, ok := b.(map[string]any)
		if !ok {
			continue
		}
		err := e.CheckXGtsRef(root, branch, doc, fmt.Sprintf("%s.%s[%d]", path, key, i))
		if err == nil {
			satisfied++
		} else if firstErr == nil {
			firstErr = err
		}
	}

	switch mode {
	case combinatorAll:
		if satisfied != len(branches) {
			return firstErr
		}
	case combinatorAny:
		if satisfied == 0 {
			return firstErr
		}
	case combinatorOne:
		if satisfied != 1 {
			return &RefTargetError{Path: path + "." + key, Reason: fmt.Sprintf("expected exactly one satisfying branch, got %d", satisfied)}
		}
	}
	return nil
}

// resolveRef validates value against ref, which is either a JSON Pointer
// ("/a/b/0") resolved against root (the schema document containing the
// x-gts-ref site), or a GTS type-id prefix the value must extend and
// resolve to in the store.
func (e *Engine) resolveRef(root map[string]any, ref, value string) error {
	if strings.HasPrefix(ref, "/") {
		return ResolvePointerRef(root, ref, value)
	}
	return e.resolveGTSPrefixRef(ref, value)
}

// resolveGTSPrefixRef checks that value is a GTS id whose canonical form
// starts with ref followed by a `~`-chain extension, and that it resolves
// to a registered entity.
func (e *Engine) resolveGTSPrefixRef(ref, value string) error {
	if !gtsid.Valid(value) {
		return fmt.Errorf("value %q is not a well-formed GTS id", value)
	}
	prefix := strings.TrimSuffix(ref, "~") + "~"
	if !strings.HasPrefix(value, prefix) || len(value) == len(prefix) {
		return fmt.Errorf("value %q does not extend prefix %q", value, ref)
	}
	if e.store.Get(value) == nil {
		return fmt.Errorf("value %q does not resolve to a registered entity", value)
	}
	return nil
}

// ResolvePointerRef resolves a JSON-Pointer-form x-gts-ref (e.g. "/a/b/0")
// against root (the schema document containing the x-gts-ref site) and
// compares it literally against value.
func ResolvePointerRef(root any, pointer, value string) error {
	target, err := jsonPointerLookup(root, pointer)
	if err != nil {
		return err
	}
	s, ok := target.(string)
	if !ok {
		return fmt.Errorf("JSON Pointer %q does not resolve to a string", pointer)
	}
	if s != value {
		return fmt.Errorf("value %q does not equal pointer target %q", value, s)
	}
	return nil
}

// ValidateXGtsRefParseable walks a schema document and checks that every
// x-gts-ref value parses as either a JSON Pointer or a GTS id/prefix; used
// at ingest time under the validation=true query flag, before any instance
// exists to resolve GTS-prefix refs against.
func ValidateXGtsRefParseable(schema map[string]any) error {
	return walkXGtsRefSites(schema, "", func(path, ref string) error {
		if strings.HasPrefix(ref, "/") {
			return nil
		}
		prefix := strings.TrimSuffix(ref, "~")
		if !gtsid.Valid(prefix) {
			return fmt.Errorf("x-gts-ref at %s: %q is neither a JSON Pointer nor a valid GTS id/prefix", path, ref)
		}
		return nil
	})
}

func walkXGtsRefSites(node any, path string, visit func(path, ref string) error) error {
	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	if ref, ok := m["x-gts-ref"].(string); ok {
		if err := visit(path, ref); err != nil {
			return err
		}
	}
	for _, key := range []string{"allOf", "anyOf", "oneOf"} {
		branches, _ := m[key].([]any)
		for i, b := range branches {
			if err := walkXGtsRefSites(b, fmt.Sprintf("%s.%s[%d]", path, key, i), visit); err != nil {
				return err
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for k, sub := range props {
			if err := walkXGtsRefSites(sub, path+"."+k, visit); err != nil {
				return err
			}
		}
	}
	if items, ok := m["items"]; ok {
		if err := walkXGtsRefSites(items, path+"[]", visit); err != nil {
			return err
		}
	}
	return nil
}

func jsonPointerLookup(root any, pointer string) (any, error) {
	if pointer == "" || pointer == "/" {
		return root, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("invalid JSON Pointer %q", pointer)
	}
	tokens := strings.Split(pointer[1:], "/")
	cur := root
	for _, raw := range tokens {
		tok := strings.ReplaceAll(strings.ReplaceAll(raw, "~1", "/"), "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("JSON Pointer segment %q not found", tok)
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("JSON Pointer segment %q is not a valid array index", tok)
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("JSON Pointer traversal hit a scalar before exhausting path at %q", tok)
		}
	}
	return cur, nil
}
