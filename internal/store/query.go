package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gts-registry/gts/internal/gtsid"
)

// QueryResult is the response body for `GET /query`.
type QueryResult struct {
	Error   string           `json:"error,omitempty"`
	Count   int              `json:"count"`
	Limit   int              `json:"limit"`
	Results []map[string]any `json:"results"`
}

const defaultQueryLimit = 100

// Query filters registered entities by a query expression of the form
// "<id-pattern>" or "<id-pattern>[field=value, field=*]".
// Filters are rejected on type patterns (trailing `~` or `~*`), since a
// schema's top-level properties aren't instance attribute values.
func (s *Store) Query(expr string, limit int) *QueryResult {
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	result := &QueryResult{Limit: limit, Results: []map[string]any{}}

	basePattern, filters, err := parseQueryExpression(expr)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	isWildcard := strings.Contains(basePattern, "*")
	if err := validateQueryPattern(basePattern, isWildcard); err != nil {
		result.Error = err.Error()
		return result
	}

	snap := s.Snapshot()
	for _, e := range snap {
		if len(result.Results) >= limit {
			break
		}
		if len(e.Content) == 0 || e.GtsID == nil {
			continue
		}
		if !matchesIDPattern(e.GtsID.Canonical, basePattern) {
			continue
		}
		if !matchesFilters(e.Content, filters) {
			continue
		}
		result.Results = append(result.Results, e.Content)
	}

	result.Count = len(result.Results)
	return result
}

func parseQueryExpression(expr string) (string, map[string]string, error) {
	parts := strings.SplitN(expr, "[", 2)
	basePattern := strings.TrimSpace(parts[0])

	filters := make(map[string]string)
	if len(parts) != 2 {
		return basePattern, filters, nil
	}

	filterStr := strings.TrimSpace(parts[1])
	if !strings.HasSuffix(filterStr, "]") {
		return "", nil, errors.New("invalid query: missing closing bracket ']'")
	}
	filterStr = strings.TrimSuffix(filterStr, "]")

	if strings.HasSuffix(basePattern, "~") || strings.HasSuffix(basePattern, "~*") {
		return "", nil, errors.New("invalid query: filters cannot be used with type patterns (ending with ~ or ~*)")
	}

	return basePattern, parseQueryFilters(filterStr), nil
}

func parseQueryFilters(filterStr string) map[string]string {
	filters := make(map[string]string)
	if filterStr == "" {
		return filters
	}
	for _, part := range strings.Split(filterStr, ",") {
		part = strings.TrimSpace(part)
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.Trim(strings.TrimSpace(kv[1]), `"'`)
		filters[key] = value
	}
	return filters
}

func validateQueryPattern(basePattern string, isWildcard bool) error {
	if isWildcard {
		if !strings.HasSuffix(basePattern, ".*") && !strings.HasSuffix(basePattern, "~*") {
			return errors.New("invalid query: wildcard patterns must end with .* or ~*")
		}
		if _, err := gtsid.ParsePattern(basePattern); err != nil {
			return fmt.Errorf("invalid query: %w", err)
		}
		return nil
	}

	id, err := gtsid.Parse(basePattern)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	if len(id.Segments) == 0 {
		return errors.New("invalid query: GTS id has no valid segments")
	}
	last := id.Segments[len(id.Segments)-1]
	if !last.IsType && last.Major == 0 {
		return errors.New("invalid query: incomplete GTS id pattern")
	}
	return nil
}

func matchesIDPattern(entityID, basePattern string) bool {
	if strings.Contains(basePattern, "*") {
		return gtsid.Match(entityID, basePattern).Match
	}
	return entityID == basePattern
}

func matchesFilters(content map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got := fmt.Sprintf("%v", content[key])
		if want == "*" {
			if got == "" || got == "<nil>" {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}
