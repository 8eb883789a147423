package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"

	hschema "github.com/hartzell-stephen-me/hdf5schema/schema"
	"github.com/hartzell-stephen-me/hdf5schema/tree/jsonfixture"
	"github.com/hartzell-stephen-me/hdf5schema/validator"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// validateQuery is the subset of ?strict=&format= query parameters
// this service recognizes, decoded with gorilla/schema.
type validateQuery struct {
	// Strict, if true, causes a response containing any data error to
	// be reported with HTTP 422 instead of 200; the error list itself
	// is identical either way.
	Strict bool   `schema:"strict"`
	Format string `schema:"format"` // decoded but not used; responses are always JSON
}

// validateRequest is the POST /v1/validate body: either an inline raw
// schema document or the name of one pre-registered with
// Server.RegisterSchema, plus a jsonfixture tree document (see
// tree/jsonfixture for its shape).
type validateRequest struct {
	SchemaName string          `json:"schemaName,omitempty"`
	Schema     json.RawMessage `json:"schema,omitempty"`
	Tree       json.RawMessage `json:"tree"`
}

type validateResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []validator.ErrorRecord  `json:"errors,omitempty"`
}

func (s *Server) routes() {
	s.router.HandleFunc("/v1/validate", s.handleValidate).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/schemas/{name}", s.handleGetSchema).Methods(http.MethodGet)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var q validateQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid query parameters: "+err.Error())
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "reading body: "+err.Error())
		return
	}
	var req validateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	var doc *hschema.Document
	switch {
	case len(req.Schema) > 0:
		doc, err = s.compileOnce(req.Schema)
	case req.SchemaName != "":
		var ok bool
		doc, ok = s.lookupSchema(req.SchemaName)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "no such registered schema: "+req.SchemaName)
			return
		}
	default:
		writeJSONError(w, http.StatusBadRequest, "one of schema or schemaName is required")
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "schema error: "+err.Error())
		return
	}

	root, err := jsonfixture.Build(req.Tree)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid tree fixture: "+err.Error())
		return
	}

	errs, err := validator.Validate(root, doc)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "schema error: "+err.Error())
		return
	}

	status := http.StatusOK
	if q.Strict && len(errs) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	doc, ok := s.lookupSchema(name)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "no such registered schema: "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    name,
		"defs":    len(doc.Defs),
		"rootType": doc.Root.Type.String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
