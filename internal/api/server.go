package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP host bridge for reader sessions.
type Server struct {
	router   chi.Router
	sessions *sessions.Manager
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(mgr *sessions.Manager, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		sessions: mgr,
		log:      log,
		cfg:      cfg,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.FolioAPIKey, s.log))

		r.Post("/api/sessions", s.handleCreateSession)
		r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/events", s.handleEvents)
			r.Put("/flags", s.handleFlags)
			r.Put("/theme", s.handleTheme)
			r.Put("/font", s.handleFont)
			r.Post("/page", s.handlePage)
			r.Put("/highlights", s.handleHighlights)
			r.Get("/content", s.handleContent)
		})
		r.Get("/api/stats/dispatch", s.handleDispatchStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
