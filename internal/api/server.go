// Package api exposes ranking sessions and address suggestions over HTTP for
// a presentation client.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/nearby/internal/model"
	"github.com/sells-group/nearby/internal/session"
	"github.com/sells-group/nearby/internal/suggest"
)

// SessionFactory builds a session over freshly ingested candidates.
type SessionFactory func(candidates []model.Candidate) *session.Session

// Deps are the collaborators a Server needs.
type Deps struct {
	NewSession  SessionFactory
	Suggestions suggest.Lookup
	Debounce    time.Duration
	TopK        int
}

// Server routes requests to sessions kept in memory.
type Server struct {
	deps Deps

	// base outlives individual requests; passes run under it.
	base context.Context

	mu         sync.RWMutex
	sessions   map[string]*session.Session
	suggesters map[string]*suggest.Suggester
	results    map[string]*session.PassResult
}

// New creates a Server. Passes started through it are cancelled when base
// is done.
func New(base context.Context, deps Deps) *Server {
	if deps.TopK <= 0 {
		deps.TopK = 3
	}
	return &Server{
		deps:       deps,
		base:       base,
		sessions:   make(map[string]*session.Session),
		suggesters: make(map[string]*suggest.Suggester),
		results:    make(map[string]*session.PassResult),
	}
}

// Handler returns the routed handler with CORS restricted to origins.
func (s *Server) Handler(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/suggest", s.handleSuggest)

	r.Post("/sessions", s.handleCreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(s.withSession)
		r.Delete("/", s.handleDeleteSession)
		r.Get("/view", s.handleView)
		r.Get("/top", s.handleTop)
		r.Get("/progress", s.handleProgress)
		r.Post("/passes", s.handleStartPass)
		r.Delete("/passes/current", s.handleCancelPass)
		r.Post("/reset", s.handleReset)
	})
	return r
}

func (s *Server) lookup(id string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) suggester(client string) *suggest.Suggester {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, ok := s.suggesters[client]
	if !ok {
		sg = suggest.New(s.deps.Suggestions, s.deps.Debounce)
		s.suggesters[client] = sg
	}
	return sg
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
