package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/formcoach/internal/advisor"
	"github.com/claude/formcoach/internal/session"
	"github.com/claude/formcoach/internal/speech"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP and WebSocket handlers.
type Server struct {
	sessions *session.Manager
	advisor  *advisor.Client
	speech   *speech.Client
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

// New creates a new Server with all routes configured.
func New(sessions *session.Manager, adv *advisor.Client, tts *speech.Client, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		sessions: sessions,
		advisor:  adv,
		speech:   tts,
		log:      log,
		apiKey:   apiKey,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}

		r.Get("/exercises", s.handleListExercises)

		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions", s.handleListSessions)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/reset", s.handleResetSession)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
		r.Get("/sessions/{id}/summary", s.handleSessionSummary)
		r.Get("/sessions/{id}/stream", s.handleStream)

		r.Post("/speech", s.handleSpeech)
	})
}

// Mount attaches an extra handler subtree, e.g. an MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}
