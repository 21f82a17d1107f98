package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dgallion1/personabot/internal/chat"
	"github.com/dgallion1/personabot/internal/config"
	"github.com/dgallion1/personabot/internal/metrics"
	"github.com/dgallion1/personabot/internal/persona"
	"github.com/dgallion1/personabot/internal/pipeline"
	"github.com/dgallion1/personabot/internal/retrieval"
	"github.com/dgallion1/personabot/internal/synth"
)

// PersonaStore is the persistence the API reads and writes profiles through.
type PersonaStore interface {
	GetPersona(ctx context.Context, name string) (*persona.Profile, error)
	ListPersonas(ctx context.Context) ([]*persona.Profile, error)
	SavePersona(ctx context.Context, p *persona.Profile) error
	DeletePersona(ctx context.Context, name string) error
	MessageCount(ctx context.Context, name string) (int, error)
}

// Services are the collaborators behind the HTTP handlers.
type Services struct {
	Orchestrator *pipeline.Orchestrator
	Responder    *chat.Responder
	Assembler    *synth.Assembler
	Personas     PersonaStore
	Knowledge    *retrieval.Registry
	Metrics      *metrics.Metrics
}

// Server is the HTTP API server for personabot.
type Server struct {
	router chi.Router
	svc    Services
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Services, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/reply", s.handleReply)
		r.Post("/api/chat", s.handleChat)
		r.Post("/api/search", s.handleSearch)

		r.Get("/api/personas", s.handleListPersonas)
		r.Get("/api/personas/{name}", s.handleGetPersona)
		r.Put("/api/personas/{name}", s.handlePutPersona)
		r.Delete("/api/personas/{name}", s.handleDeletePersona)
		r.Post("/api/personas/{name}/ingest", s.handleIngest)

		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/stats/latency", s.handleLatencyStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
