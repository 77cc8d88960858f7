package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gition/gition/internal/config"
	"github.com/gition/gition/internal/db"
	"github.com/gition/gition/internal/events"
	"github.com/gition/gition/internal/gitapi"
	"github.com/gition/gition/internal/githubapi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zalando/go-keyring"
)

// timeoutMiddleware applies timeout to all routes except streaming endpoints
func timeoutMiddleware(timeout time.Duration) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip timeout for WebSocket routes
			if strings.HasPrefix(r.URL.Path, "/ws/") {
				next.ServeHTTP(w, r)
				return
			}
			middleware.Timeout(timeout)(next).ServeHTTP(w, r)
		})
	}
}

// githubToken resolves the GitHub token: environment first, then the
// token stored by "gition auth set".
func githubToken() string {
	if token := os.Getenv("GITION_GITHUB_TOKEN"); token != "" {
		return token
	}
	token, err := keyring.Get("gition", "github-token")
	if err != nil {
		return ""
	}
	return token
}

type Server struct {
	cfg      *config.Config
	db       *db.DB
	router   *chi.Mux
	server   *http.Server
	eventBus *events.Bus
	git      *gitapi.Client
	github   *githubapi.Client
}

func New(cfg *config.Config, database *db.DB) (*Server, error) {
	eventBus, err := events.NewBus(cfg.Server.NatsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	git := gitapi.NewClient(cfg.Backend.URL, cfg.Backend.UserID)
	token := githubToken()
	if token != "" {
		git.SetToken(token)
	}

	s := &Server{
		cfg:      cfg,
		db:       database,
		router:   chi.NewRouter(),
		eventBus: eventBus,
		git:      git,
		github:   githubapi.NewClient(token),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	// Custom timeout middleware that excludes streaming routes
	s.router.Use(timeoutMiddleware(60 * time.Second))

	// Health check
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Repository directory
	s.router.Get("/api/repos", s.handleRepoList)
	s.router.Get("/api/repos/recent", s.handleRecentVisits)
	s.router.Get("/api/repos/{repo}/status", s.handleCloneStatus)
	s.router.Post("/api/repos/{repo}/clone", s.handleClone)
	s.router.Post("/api/repos/{repo}/pull", s.handlePull)
	s.router.Delete("/api/repos/{repo}", s.handleRepoDelete)
	s.router.Get("/api/repos/{repo}/commits", s.handleCommits)
	s.router.Get("/api/repos/{repo}/pages", s.handlePageList)

	// GitHub proxy
	s.router.Get("/api/github/{owner}/{repo}/issues", s.handleIssues)
	s.router.Get("/api/github/{owner}/{repo}/pulls", s.handlePulls)

	// Navigation state derivation. A repo URL without a branch redirects
	// once to make the branch explicit.
	s.router.Get("/view/{owner}/{repo}", s.handleViewRedirect)
	s.router.Get("/view/{owner}/{repo}/{branch}", s.handleView)
	s.router.Get("/view/{owner}/{repo}/{branch}/*", s.handleView)

	// WebSocket for workspace state
	s.router.Get("/ws/workspace/{owner}/{repo}/{branch}", s.handleWorkspaceWS)
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	fmt.Printf("Server starting on http://%s\n", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.eventBus != nil {
		s.eventBus.Close()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) EventBus() *events.Bus {
	return s.eventBus
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
