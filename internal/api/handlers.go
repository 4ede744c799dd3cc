package api

import (
	"fmt"
	"net/http"

	"github.com/gts-registry/gts/internal/entity"
	"github.com/gts-registry/gts/internal/gtsid"
	"github.com/gts-registry/gts/internal/refine"
	"github.com/gts-registry/gts/internal/store"
)

// Entity management

func (s *Server) handleGetEntities(w http.ResponseWriter, r *http.Request) {
	limit := clamp(s.getQueryParamInt(r, "limit", 100), 1, 1000)
	s.writeJSON(w, http.StatusOK, s.store.List(limit))
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing entity id")
		return
	}
	e := s.store.Get(id)
	if e == nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("entity not found: %s", id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "content": e.Content})
}

func (s *Server) handleAddEntity(w http.ResponseWriter, r *http.Request) {
	var content map[string]any
	if err := s.readJSON(r, &content); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ent := entity.New(content, s.cfg)
	if ent.GtsID == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "unable to extract a GTS id from entity"})
		return
	}

	wantValidation := s.getQueryParam(r, "validation") == "true"
	if wantValidation && ent.IsSchema {
		if err := refine.ValidateXGtsRefParseable(ent.Content); err != nil {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": fmt.Sprintf("validation failed: %s", err)})
			return
		}
	}

	if wantValidation && !ent.IsSchema {
		if err := s.store.PutValidated(ent, store.IngestOptions{ValidateReferences: true}); err != nil {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		result := s.instance.Validate(ent.GtsID.Canonical)
		if !result.OK {
			s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false, "error": result.Error})
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gts_id": ent.GtsID.Canonical})
		return
	}

	if err := s.store.Put(ent); err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "gts_id": ent.GtsID.Canonical})
}

func (s *Server) handleAddEntities(w http.ResponseWriter, r *http.Request) {
	var contents []map[string]any
	if err := s.readJSON(r, &contents); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON array")
		return
	}

	results := make([]map[string]any, len(contents))
	ok := 0
	for i, content := range contents {
		ent := entity.New(content, s.cfg)
		if ent.GtsID == nil {
			results[i] = map[string]any{"ok": false, "error": "unable to extract a GTS id from entity"}
			continue
		}
		if err := s.store.Put(ent); err != nil {
			results[i] = map[string]any{"ok": false, "error": err.Error()}
			continue
		}
		results[i] = map[string]any{"ok": true, "gts_id": ent.GtsID.Canonical}
		ok++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok": ok == len(contents), "count": ok, "total": len(contents), "results": results,
	})
}

// Identifier algebra (OP#1-5)

func (s *Server) handleValidateID(w http.ResponseWriter, r *http.Request) {
	id := s.getQueryParam(r, "gts_id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing gts_id parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, gtsid.Validate(id))
}

func (s *Server) handleExtractID(w http.ResponseWriter, r *http.Request) {
	var content map[string]any
	if err := s.readJSON(r, &content); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.writeJSON(w, http.StatusOK, entity.Extract(content, s.cfg))
}

func (s *Server) handleParseID(w http.ResponseWriter, r *http.Request) {
	id := s.getQueryParam(r, "gts_id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing gts_id parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, gtsid.ParseForWire(id))
}

func (s *Server) handleMatchIDPattern(w http.ResponseWriter, r *http.Request) {
	candidate := s.getQueryParam(r, "candidate")
	pattern := s.getQueryParam(r, "pattern")
	if candidate == "" || pattern == "" {
		s.writeError(w, http.StatusBadRequest, "missing candidate or pattern parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, gtsid.Match(candidate, pattern))
}

func (s *Server) handleUUID(w http.ResponseWriter, r *http.Request) {
	id := s.getQueryParam(r, "gts_id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing gts_id parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, gtsid.ToUUID(id))
}

// Validation, refinement, casting (OP#6, OP#8, OP#9 plus the schema/entity
// validation routes the teacher's server never wired)

func (s *Server) handleValidateInstance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstanceID string `json:"instance_id"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.writeJSON(w, http.StatusOK, s.instance.Validate(req.InstanceID))
}

func (s *Server) handleValidateSchema(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SchemaID string `json:"schema_id"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.refine.ValidateSchema(req.SchemaID); err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleValidateEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID string `json:"entity_id"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.writeJSON(w, http.StatusOK, s.instance.Validate(req.EntityID))
}

func (s *Server) handleCompatibility(w http.ResponseWriter, r *http.Request) {
	oldSchemaID := s.getQueryParam(r, "old_schema_id")
	newSchemaID := s.getQueryParam(r, "new_schema_id")
	if oldSchemaID == "" || newSchemaID == "" {
		s.writeError(w, http.StatusBadRequest, "missing old_schema_id or new_schema_id parameter")
		return
	}
	result, err := s.instance.CheckCompatibility(oldSchemaID, newSchemaID)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InstanceID string `json:"instance_id"`
		ToSchemaID string `json:"to_schema_id"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	result, err := s.instance.Cast(req.InstanceID, req.ToSchemaID)
	if err != nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// Graph, query, attribute access (OP#7, OP#10, OP#11)

func (s *Server) handleResolveRelationships(w http.ResponseWriter, r *http.Request) {
	id := s.getQueryParam(r, "gts_id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing gts_id parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.BuildRelationshipGraph(id))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	expr := s.getQueryParam(r, "expr")
	if expr == "" {
		s.writeError(w, http.StatusBadRequest, "missing expr parameter")
		return
	}
	limit := clamp(s.getQueryParamInt(r, "limit", 100), 1, 1000)
	s.writeJSON(w, http.StatusOK, s.store.Query(expr, limit))
}

func (s *Server) handleAttribute(w http.ResponseWriter, r *http.Request) {
	gtsWithPath := s.getQueryParam(r, "gts_with_path")
	if gtsWithPath == "" {
		s.writeError(w, http.StatusBadRequest, "missing gts_with_path parameter")
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.GetAttribute(gtsWithPath))
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
