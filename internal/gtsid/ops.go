package gtsid

import "strings"

// These DTOs shape the wire-level responses for the id-only endpoints
// (`/validate-id`, `/parse-id`, `/uuid`, `/match-id-pattern`). Keeping them
// next to the algebra they wrap avoids a result type per HTTP handler.

// ValidateResult is the response body for `/validate-id`.
type ValidateResult struct {
	ID         string `json:"id"`
	Valid      bool   `json:"valid"`
	IsWildcard bool   `json:"is_wildcard"`
	Error      string `json:"error,omitempty"`
}

// Validate checks well-formedness, reporting whether the candidate is a
// wildcard pattern (legal only for `/match-id-pattern` and `/query`, not for
// entity ids themselves).
func Validate(text string) ValidateResult {
	id, err := Parse(text)
	if err == nil && !strings.Contains(id.Canonical, "*") {
		return ValidateResult{ID: text, Valid: true}
	}
	if err == nil {
		if _, err = ParsePattern(text); err == nil {
			return ValidateResult{ID: text, Valid: true, IsWildcard: true}
		}
	}
	return ValidateResult{ID: text, Valid: false, Error: err.Error()}
}

// SegmentView is the JSON-facing projection of a parsed Segment.
type SegmentView struct {
	Vendor    string `json:"vendor"`
	Package   string `json:"package"`
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
	VerMajor  int    `json:"ver_major"`
	VerMinor  *int   `json:"ver_minor,omitempty"`
	IsType    bool   `json:"is_type"`
}

// ParseResult is the response body for `/parse-id`.
type ParseResult struct {
	ID         string        `json:"id"`
	OK         bool          `json:"ok"`
	IsSchema   bool          `json:"is_schema"`
	IsWildcard bool          `json:"is_wildcard"`
	Segments   []SegmentView `json:"segments,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// ParseForWire parses text and shapes the result for JSON transport.
func ParseForWire(text string) ParseResult {
	id, err := Parse(text)
	if err == nil && strings.Contains(id.Canonical, "*") {
		if _, err = ParsePattern(text); err == nil {
			return ParseResult{ID: text, OK: true, IsWildcard: true}
		}
	}
	if err != nil {
		return ParseResult{ID: text, OK: false, Error: err.Error()}
	}

	views := make([]SegmentView, len(id.Segments))
	for i, s := range id.Segments {
		views[i] = SegmentView{
			Vendor: s.Vendor, Package: s.Package, Namespace: s.Namespace, Type: s.Type,
			VerMajor: s.Major, VerMinor: s.Minor, IsType: s.IsType,
		}
	}

	return ParseResult{
		ID:       text,
		OK:       true,
		IsSchema: id.IsType(),
		Segments: views,
	}
}

// UUIDResult is the response body for `/uuid`.
type UUIDResult struct {
	ID    string `json:"id"`
	UUID  string `json:"uuid"`
	Error string `json:"error,omitempty"`
}

// ToUUID derives the response body directly from text input.
func ToUUID(text string) UUIDResult {
	u, err := UUIDFor(text)
	if err != nil {
		return UUIDResult{ID: text, Error: err.Error()}
	}
	return UUIDResult{ID: text, UUID: u.String()}
}
