package store

import (
	"fmt"
	"strconv"
	"strings"
)

// AttributeResult is the response body for `GET /attr`.
type AttributeResult struct {
	GtsID           string   `json:"gts_id"`
	Path            string   `json:"path"`
	Value           any      `json:"value,omitempty"`
	Resolved        bool     `json:"resolved"`
	Error           string   `json:"error,omitempty"`
	AvailableFields []string `json:"available_fields,omitempty"`
}

// GetAttribute resolves a "<gts_id>@<dotted.path>" selector against the
// entity's content, supporting bracketed array indices ("items[0].name").
func (s *Store) GetAttribute(gtsWithPath string) *AttributeResult {
	gtsID, path := splitAtPath(gtsWithPath)
	if path == "" {
		return &AttributeResult{GtsID: gtsID, Resolved: false, Error: "attribute selector requires '@path' in the identifier"}
	}

	e := s.Get(gtsID)
	if e == nil {
		return &AttributeResult{GtsID: gtsID, Path: path, Resolved: false, Error: fmt.Sprintf("entity not found: %s", gtsID)}
	}
	return resolveAttributePath(gtsID, path, e.Content)
}

func splitAtPath(gtsWithPath string) (string, string) {
	if !strings.Contains(gtsWithPath, "@") {
		return gtsWithPath, ""
	}
	parts := strings.SplitN(gtsWithPath, "@", 2)
	id := parts[0]
	path := ""
	if len(parts) == 2 {
		path = parts[1]
	}
	return id, path
}

func resolveAttributePath(gtsID, path string, content map[string]any) *AttributeResult {
	result := &AttributeResult{GtsID: gtsID, Path: path}

	var current any = content
	for _, part := range parsePath(path) {
		switch node := current.(type) {
		case map[string]any:
			if isIndexToken(part) {
				result.Error = fmt.Sprintf("path not found at segment %q in %q, see available fields", part, path)
				result.AvailableFields = collectFields(node, "")
				return result
			}
			val, exists := node[part]
			if !exists {
				result.Error = fmt.Sprintf("path not found at segment %q in %q, see available fields", part, path)
				result.AvailableFields = collectFields(node, "")
				return result
			}
			current = val

		case []any:
			idx, err := parseIndex(part)
			if err != nil || idx < 0 || idx >= len(node) {
				result.Error = fmt.Sprintf("expected a valid list index at segment %q", part)
				result.AvailableFields = collectArrayFields(node, "")
				return result
			}
			current = node[idx]

		default:
			result.Error = fmt.Sprintf("cannot descend into %T at segment %q", current, part)
			return result
		}
	}

	result.Value = current
	result.Resolved = true
	return result
}

func isIndexToken(part string) bool {
	return strings.HasPrefix(part, "[") && strings.HasSuffix(part, "]")
}

func parseIndex(part string) (int, error) {
	if isIndexToken(part) {
		return strconv.Atoi(part[1 : len(part)-1])
	}
	return strconv.Atoi(part)
}

// parsePath splits a dotted/slashed path into field-name and bracketed-index
// tokens, e.g. "items[0].name" -> ["items", "[0]", "name"].
func parsePath(path string) []string {
	normalized := strings.ReplaceAll(path, "/", ".")

	var parts []string
	for _, seg := range strings.Split(normalized, ".") {
		if seg != "" {
			parts = append(parts, splitIndices(seg)...)
		}
	}
	return parts
}

func splitIndices(seg string) []string {
	var out []string
	buf := ""
	i := 0
	for i < len(seg) {
		if seg[i] == '[' {
			if buf != "" {
				out = append(out, buf)
				buf = ""
			}
			j := strings.Index(seg[i+1:], "]")
			if j == -1 {
				buf += seg[i:]
				break
			}
			j += i + 1
			out = append(out, seg[i:j+1])
			i = j + 1
			continue
		}
		buf += string(seg[i])
		i++
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

func collectFields(node map[string]any, prefix string) []string {
	var fields []string
	for key, val := range node {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		fields = append(fields, path)
		switch v := val.(type) {
		case map[string]any:
			fields = append(fields, collectFields(v, path)...)
		case []any:
			fields = append(fields, collectArrayFields(v, path)...)
		}
	}
	return fields
}

func collectArrayFields(node []any, prefix string) []string {
	var fields []string
	for i, val := range node {
		path := fmt.Sprintf("[%d]", i)
		if prefix != "" {
			path = prefix + path
		}
		fields = append(fields, path)
		switch v := val.(type) {
		case map[string]any:
			fields = append(fields, collectFields(v, path)...)
		case []any:
			fields = append(fields, collectArrayFields(v, path)...)
		}
	}
	return fields
}
