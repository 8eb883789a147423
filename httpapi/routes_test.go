package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestHandleValidateInlineSchema(t *testing.T) {
	s := newTestServer(t)

	body := validateRequest{
		Schema: json.RawMessage(`{"type": "group", "members": {"data": {"type": "dataset", "dtype": "<f8"}}, "required": ["data"]}`),
		Tree:   json.RawMessage(`{"type": "group", "children": {"data": {"type": "dataset", "dtype": "<f8", "shape": [3]}}}`),
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp validateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Valid {
		t.Fatalf("expected a valid tree, got errors: %v", resp.Errors)
	}
}

func TestHandleValidateRegisteredSchemaStrict(t *testing.T) {
	s := newTestServer(t)
	doc, err := schema.Load([]byte(`{"type": "group", "required": ["missing"]}`))
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	s.RegisterSchema("empty-required", doc)

	body := validateRequest{
		SchemaName: "empty-required",
		Tree:       json.RawMessage(`{"type": "group"}`),
	}
	raw, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/v1/validate?strict=true", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 under ?strict=true with data errors, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetSchemaNotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/schemas/nope", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
