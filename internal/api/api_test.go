package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gts-registry/gts/internal/store"
)

func newTestServer() (*Server, *store.Store) {
	s := store.New()
	return NewServer(s, nil, "127.0.0.1", 0, 0), s
}

func doJSON(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestValidateIDRoute(t *testing.T) {
	srv, _ := newTestServer()
	rec := doJSON(t, srv, http.MethodGet, "/validate-id?gts_id=gts.x.core.widget.type.v1~", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["valid"])
}

func TestAddEntityThenGetRoundTrip(t *testing.T) {
	srv, _ := newTestServer()
	schema := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"$id":     "gts.x.core.widget.type.v1~",
		"type":    "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	}
	rec := doJSON(t, srv, http.MethodPost, "/entities", schema)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, true, body["ok"])

	rec = doJSON(t, srv, http.MethodGet, "/entities/gts.x.core.widget.type.v1~", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "gts.x.core.widget.type.v1~", body["id"])
}

func TestAddEntityWithValidationRejectsMissingRequired(t *testing.T) {
	srv, _ := newTestServer()
	schema := map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"$id":      "gts.x.core.widget.type.v1~",
		"type":     "object",
		"required": []any{"name"},
		"properties": map[string]any{
			"id":   map[string]any{"type": "string"},
			"type": map[string]any{"type": "string"},
			"name": map[string]any{"type": "string"},
		},
	}
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/entities", schema).Code)

	instance := map[string]any{
		"id":   "gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0",
		"type": "gts.x.core.widget.type.v1~",
	}
	rec := doJSON(t, srv, http.MethodPost, "/entities?validation=true", instance)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["ok"])
}

func TestCompatibilityRoute(t *testing.T) {
	srv, _ := newTestServer()
	v1 := map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}
	v11 := map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1.1~",
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
		"required":   []any{"name"},
	}
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/entities", v1).Code)
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/entities", v11).Code)

	rec := doJSON(t, srv, http.MethodGet,
		"/compatibility?old_schema_id=gts.x.core.widget.type.v1~&new_schema_id=gts.x.core.widget.type.v1.1~", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["is_backward_compatible"])
}

func TestAttributeRoute(t *testing.T) {
	srv, _ := newTestServer()
	schema := map[string]any{
		"$schema": "x", "$id": "gts.x.core.widget.type.v1~",
		"type":       "object",
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}
	instance := map[string]any{
		"id":   "gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0",
		"type": "gts.x.core.widget.type.v1~",
		"name": "hello",
	}
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/entities", schema).Code)
	require.Equal(t, http.StatusOK, doJSON(t, srv, http.MethodPost, "/entities", instance).Code)

	rec := doJSON(t, srv, http.MethodGet,
		"/attr?gts_with_path=gts.x.core.widget.type.v1~acme.prod.one.thing.v1.0@name", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["resolved"])
	assert.Equal(t, "hello", body["value"])
}
