package entity

import (
	"fmt"

	"github.com/gts-registry/gts/internal/gtsid"
)

// Reference is a GTS identifier found while walking a document's content,
// recorded with the dotted/bracketed path it was found at.
type Reference struct {
	ID         string
	SourcePath string
}

// ExtractReferences walks content depth-first and collects every string
// value that parses as a well-formed GTS id, deduplicated by (id, path).
func ExtractReferences(content any) []Reference {
	var refs []Reference
	seen := map[string]bool{}
	walkRefs(content, "", &refs, seen)
	return refs
}

func walkRefs(node any, path string, refs *[]Reference, seen map[string]bool) {
	switch v := node.(type) {
	case string:
		if gtsid.Valid(v) {
			p := path
			if p == "" {
				p = "root"
			}
			key := v + "|" + p
			if !seen[key] {
				seen[key] = true
				*refs = append(*refs, Reference{ID: v, SourcePath: p})
			}
		}
	case map[string]any:
		for k, child := range v {
			next := k
			if path != "" {
				next = path + "." + k
			}
			walkRefs(child, next, refs, seen)
		}
	case []any:
		for i, child := range v {
			next := fmt.Sprintf("[%d]", i)
			if path != "" {
				next = path + next
			}
			walkRefs(child, next, refs, seen)
		}
	}
}
