// Package httpapi exposes the validation engine as a small HTTP
// service: a gorilla/mux router wrapped in an h2c handler so HTTP/2
// works without TLS, with schema (re)compiles for concurrent
// identical requests deduplicated by golang.org/x/sync/singleflight.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/singleflight"

	"github.com/hartzell-stephen-me/hdf5schema/schema"
)

// Config holds the HTTP serving parameters this service needs.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	HeaderTimeout   time.Duration
	ShutdownTimeout time.Duration
	MaxHandlers     int
}

// DefaultConfig returns sane defaults for a single-purpose validation
// service.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8100",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
		HeaderTimeout:   2 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxHandlers:     64,
	}
}

// Server is the validate-as-a-service HTTP API.
type Server struct {
	cfg    Config
	router *mux.Router
	srv    *http.Server

	mu      sync.RWMutex
	schemas map[string]*schema.Document // pre-registered schemas by name
	group   singleflight.Group          // dedups concurrent compiles of identical bodies
}

// New builds a Server. Register schemas with RegisterSchema before or
// after Start; the route handlers read the map under a lock.
func New(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("httpapi: address required")
	}
	s := &Server{cfg: cfg, schemas: map[string]*schema.Document{}}
	s.router = mux.NewRouter()
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.routes()

	h2s := &http2.Server{MaxHandlers: cfg.MaxHandlers}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(s.router, h2s),
		ReadHeaderTimeout: cfg.HeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s, nil
}

// RegisterSchema pre-registers a compiled schema under name, exposed
// via GET /v1/schemas/{name} and selectable from POST /v1/validate.
func (s *Server) RegisterSchema(name string, doc *schema.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[name] = doc
}

func (s *Server) lookupSchema(name string) (*schema.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.schemas[name]
	return doc, ok
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		log.Infof("httpapi: listening on %s", s.cfg.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("httpapi: serve: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down within cfg.ShutdownTimeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info("httpapi: shutting down")
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no such route: %s %s", r.Method, r.URL.Path))
}

// compileOnce compiles raw exactly once across concurrent requests
// with identical bytes, keyed by the raw schema bytes themselves.
func (s *Server) compileOnce(raw []byte) (*schema.Document, error) {
	v, err, _ := s.group.Do(string(raw), func() (any, error) {
		return schema.Load(raw)
	})
	if err != nil {
		return nil, err
	}
	return v.(*schema.Document), nil
}
