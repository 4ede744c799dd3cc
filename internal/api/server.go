// Package api wires the store, graph, refinement and instance engines
// behind the HTTP surface: entity CRUD plus the identifier, validation,
// cast, compatibility, query and attribute operations.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gts-registry/gts/internal/config"
	"github.com/gts-registry/gts/internal/graph"
	"github.com/gts-registry/gts/internal/instance"
	"github.com/gts-registry/gts/internal/obslog"
	"github.com/gts-registry/gts/internal/refine"
	"github.com/gts-registry/gts/internal/store"
)

// Server is the GTS HTTP server.
type Server struct {
	store    *store.Store
	resolver *graph.Resolver
	refine   *refine.Engine
	instance *instance.Engine
	cfg      *config.FieldConfig
	host     string
	port     int
	verbose  int
	log      *obslog.Logger
	mux      *http.ServeMux
}

// NewServer builds a server over s, wiring a GraphResolver, RefinementEngine
// and InstanceEngine over it. cfg, if nil, falls back to config.Default().
// verbose also threads into s's registration logger (see obslog.Level).
func NewServer(s *store.Store, cfg *config.FieldConfig, host string, port int, verbose int) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := obslog.New(obslog.Level(verbose))
	s.SetLogger(logger)

	r := graph.New(s)
	rf := refine.New(s, r)
	ie := instance.New(s, r, rf)

	srv := &Server{
		store:    s,
		resolver: r,
		refine:   rf,
		instance: ie,
		cfg:      cfg,
		host:     host,
		port:     port,
		verbose:  verbose,
		log:      logger,
		mux:      http.NewServeMux(),
	}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	// Entity management
	s.mux.HandleFunc("GET /entities", s.handleGetEntities)
	s.mux.HandleFunc("GET /entities/{id}", s.handleGetEntity)
	s.mux.HandleFunc("POST /entities", s.handleAddEntity)
	s.mux.HandleFunc("POST /entities/bulk", s.handleAddEntities)

	// Identifier algebra
	s.mux.HandleFunc("GET /validate-id", s.handleValidateID)
	s.mux.HandleFunc("POST /extract-id", s.handleExtractID)
	s.mux.HandleFunc("GET /parse-id", s.handleParseID)
	s.mux.HandleFunc("GET /match-id-pattern", s.handleMatchIDPattern)
	s.mux.HandleFunc("GET /uuid", s.handleUUID)

	// Validation, refinement, casting
	s.mux.HandleFunc("POST /validate-instance", s.handleValidateInstance)
	s.mux.HandleFunc("POST /validate-schema", s.handleValidateSchema)
	s.mux.HandleFunc("POST /validate-entity", s.handleValidateEntity)
	s.mux.HandleFunc("GET /compatibility", s.handleCompatibility)
	s.mux.HandleFunc("POST /cast", s.handleCast)

	// Graph, query, attribute access
	s.mux.HandleFunc("GET /resolve-relationships", s.handleResolveRelationships)
	s.mux.HandleFunc("GET /query", s.handleQuery)
	s.mux.HandleFunc("GET /attr", s.handleAttribute)
}

// Start blocks serving on host:port with request logging applied.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	s.log.Infof("api: listening on http://%s", addr)
	return http.ListenAndServe(addr, s.withLogging(s.mux))
}

// Handler exposes the routed mux wrapped in request logging, for tests that
// want to drive the server through net/http/httptest without binding a real
// port.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.mux)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Infof("api: error encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) getQueryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

func (s *Server) getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return n
}
