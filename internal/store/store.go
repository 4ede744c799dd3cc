// Package store implements the versioned, single-writer, last-writer-wins
// map from canonical id to entity document.
package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/entity"
	"github.com/gts-registry/gts/internal/obslog"
)

// NotFoundError is returned by operations that look up an entity id that
// isn't registered.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.ID)
}

// NotSchemaError is returned when an operation expecting a schema receives
// an instance id instead.
type NotSchemaError struct {
	ID string
}

func (e *NotSchemaError) Error() string {
	return fmt.Sprintf("entity is not a schema: %s", e.ID)
}

// InvalidDocumentError is raised at ingest for syntactically malformed
// payloads.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document: %s", e.Reason)
}

// Store is the versioned entity map. Reads take a snapshot at entry; Put
// installs a new snapshot atomically under a single-writer mutex.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]*entity.Entity
	generation uint64
	logger     *obslog.Logger
}

// New creates an empty store, logging registrations at obslog.LevelInfo
// until SetLogger overrides the level.
func New() *Store {
	return &Store{byID: make(map[string]*entity.Entity), logger: obslog.New(obslog.LevelInfo)}
}

// SetLogger replaces the store's logger, threading the CLI/server's
// --verbose level through to registration logging.
func (s *Store) SetLogger(l *obslog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = l
}

// Generation returns the current snapshot generation, used by GraphResolver
// to key its memoisation cache.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Put registers an entity. It is idempotent on byte-identical re-submission
// of the same id and a no-op (not an error) in that case; a differing
// payload for an already-registered id wins last-writer-wins.
func (s *Store) Put(e *entity.Entity) error {
	if e.GtsID == nil {
		return &InvalidDocumentError{Reason: "document has no resolvable GTS id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := e.GtsID.Canonical
	if existing, ok := s.byID[id]; ok && sameContent(existing.Content, e.Content) {
		return nil
	}

	s.byID[id] = e
	s.generation++
	s.logger.Infof("store: registered %s (schema=%v refs=%d)", id, e.IsSchema, len(e.Refs))
	return nil
}

func sameContent(a, b map[string]any) bool {
	aj, err1 := json.Marshal(a)
	bj, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return string(aj) == string(bj)
}

// Get retrieves an entity by canonical id, or nil if absent.
func (s *Store) Get(id string) *entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id]
}

// GetSchema retrieves an entity and asserts it is a schema.
func (s *Store) GetSchema(id string) (*entity.Entity, error) {
	e := s.Get(id)
	if e == nil {
		return nil, &NotFoundError{ID: id}
	}
	if !e.IsSchema {
		return nil, &NotSchemaError{ID: id}
	}
	return e, nil
}

// Snapshot returns a shallow copy of the current id->entity map, stable for
// the duration of one request.
func (s *Store) Snapshot() map[string]*entity.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entity.Entity, len(s.byID))
	for k, v := range s.byID {
		out[k] = v
	}
	return out
}

// Count returns the number of registered entities.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// ChildrenOf returns the ids of every registered schema whose `$$id`-chain
// parent equals parentID. Used by the refinement engine for trait
// narrowing / derived-schema discovery.
func (s *Store) ChildrenOf(parentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for id, e := range s.byID {
		if e.GtsID == nil || !e.IsSchema {
			continue
		}
		if e.GtsID.Parent() == parentID {
			out = append(out, id)
		}
	}
	return out
}

// EntityInfo is the summary projection used by List.
type EntityInfo struct {
	ID       string `json:"id"`
	SchemaID string `json:"schema_id"`
	IsSchema bool   `json:"is_schema"`
}

// ListResult is the response body for the administrative listing endpoint.
type ListResult struct {
	Entities []EntityInfo `json:"entities"`
	Count    int          `json:"count"`
	Total    int          `json:"total"`
}

// List returns up to limit entities (order is stable within a process but
// otherwise unspecified).
func (s *Store) List(limit int) *ListResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := &ListResult{Total: len(s.byID), Entities: []EntityInfo{}}
	for _, id := range ids {
		if len(res.Entities) >= limit {
			break
		}
		e := s.byID[id]
		res.Entities = append(res.Entities, EntityInfo{ID: id, SchemaID: e.SchemaID, IsSchema: e.IsSchema})
	}
	res.Count = len(res.Entities)
	return res
}

// IngestOptions controls optional stricter checks performed only on ingest.
type IngestOptions struct {
	ValidateReferences bool
}

// PutValidated registers e, additionally rejecting it if opts requests
// reference validation and any of its GTS references resolves to nothing
// in the store.
func (s *Store) PutValidated(e *entity.Entity, opts IngestOptions) error {
	if opts.ValidateReferences {
		if err := s.validateReferences(e); err != nil {
			return fmt.Errorf("reference validation failed for entity %s: %w", e.Label, err)
		}
	}
	return s.Put(e)
}

// validateReferences checks that every GTS reference found in e resolves to
// a registered entity, and that a schema's `$ref` edges resolve to other
// schemas.
func (s *Store) validateReferences(e *entity.Entity) error {
	if e == nil || len(e.Refs) == 0 {
		return nil
	}

	var problems []string
	selfID := ""
	if e.GtsID != nil {
		selfID = e.GtsID.Canonical
	}

	for _, ref := range e.Refs {
		if ref.ID == selfID {
			continue
		}
		if strings.HasPrefix(ref.ID, "http://json-schema.org") || strings.HasPrefix(ref.ID, "https://json-schema.org") {
			continue
		}

		target := s.Get(ref.ID)
		if target == nil {
			problems = append(problems, fmt.Sprintf("referenced entity not found: %s (at %s)", ref.ID, ref.SourcePath))
			continue
		}
		if e.IsSchema && strings.Contains(ref.SourcePath, "$ref") && !target.IsSchema {
			problems = append(problems, fmt.Sprintf("schema reference points to non-schema entity: %s (at %s)", ref.ID, ref.SourcePath))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateSchema re-checks a registered schema's references on demand, the
// same reference check PutValidated runs at ingest.
func (s *Store) ValidateSchema(id string) error {
	if !strings.HasSuffix(id, "~") {
		return fmt.Errorf("id %q is not a schema (must end with '~')", id)
	}
	e, err := s.GetSchema(id)
	if err != nil {
		return err
	}
	return s.validateReferences(e)
}

// NewEntity is a thin re-export so callers that only import store need not
// also import internal/entity for the common case.
func NewEntity(content map[string]any, cfg *config.FieldConfig) *entity.Entity {
	return entity.New(content, cfg)
}
