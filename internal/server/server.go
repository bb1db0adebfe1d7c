package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/stratum/internal/archive"
	"github.com/lazypower/stratum/internal/engine"
	"github.com/lazypower/stratum/internal/store"
)

// Server is the stratum HTTP API server.
type Server struct {
	db       *store.DB
	engine   *engine.Engine
	archiver archive.Archiver
	router   chi.Router
	version  string
	started  time.Time
}

// New creates a new Server. The archiver receives drained sync envelopes;
// it may be nil, in which case the drain endpoint is unavailable.
func New(db *store.DB, eng *engine.Engine, archiver archive.Archiver, version string) *Server {
	s := &Server{
		db:       db,
		engine:   eng,
		archiver: archiver,
		version:  version,
		started:  time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)

		r.Post("/items", s.handleRoute)
		r.Get("/items/{itemID}", s.handleGetItem)
		r.Get("/items/{itemID}/neighbors", s.handleNeighbors)

		r.Get("/search", s.handleSearch)

		r.Post("/optimize", s.handleOptimize)
		r.Post("/sync/drain", s.handleDrain)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.engine.Stats())
}
