package gtsid

import "github.com/google/uuid"

// Namespace is the fixed UUIDv5 namespace all GTS identifiers derive from:
// uuidv5(NAMESPACE_URL, "gts").
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("gts"))

// UUID derives the stable, deterministic UUIDv5 for a canonical identifier.
func (id *ID) UUID() uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(id.Canonical))
}

// UUIDFor is a convenience for callers that only have the text form.
func UUIDFor(text string) (uuid.UUID, error) {
	id, err := Parse(text)
	if err != nil {
		return uuid.UUID{}, err
	}
	return id.UUID(), nil
}
