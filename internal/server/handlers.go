package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gition/gition/internal/db"
	"github.com/gition/gition/internal/events"
	"github.com/gition/gition/internal/gitapi"
	"github.com/gition/gition/internal/nav"
	"github.com/go-chi/chi/v5"
)

// API response helpers

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func apiError(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// backendStatus maps backend client errors to an HTTP status for the
// proxy response.
func backendStatus(err error) int {
	if errors.Is(err, gitapi.ErrNotFound) {
		return http.StatusNotFound
	}
	var be *gitapi.BackendError
	if errors.As(err, &be) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Repository directory handlers

func (s *Server) handleRepoList(w http.ResponseWriter, r *http.Request) {
	repos, err := s.git.ListRepos(r.Context())
	if err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	jsonResponse(w, repos, http.StatusOK)
}

func (s *Server) handleRecentVisits(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		jsonResponse(w, []db.Visit{}, http.StatusOK)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			apiError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	store := db.NewVisitStore(s.db, s.cfg.Backend.UserID)
	visits, err := store.RecentVisits(r.Context(), limit)
	if err != nil {
		apiError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if visits == nil {
		visits = []db.Visit{}
	}
	jsonResponse(w, visits, http.StatusOK)
}

func (s *Server) handleCloneStatus(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	cloned, err := s.git.Status(r.Context(), repoName)
	if err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	jsonResponse(w, map[string]bool{"cloned": cloned}, http.StatusOK)
}

func (s *Server) handleClone(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	var req struct {
		CloneURL string `json:"clone_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CloneURL == "" {
		apiError(w, "clone_url is required", http.StatusBadRequest)
		return
	}

	state, err := s.git.Clone(r.Context(), req.CloneURL, repoName)
	if err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}

	if s.eventBus != nil {
		_ = s.eventBus.Publish(events.Event{
			Type: events.EventRepoCloned,
			Repo: s.cfg.Backend.UserID + "/" + repoName,
		})
	}

	jsonResponse(w, map[string]string{"state": string(state)}, http.StatusOK)
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	if err := s.git.Pull(r.Context(), repoName); err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	jsonResponse(w, map[string]string{"status": "success"}, http.StatusOK)
}

func (s *Server) handleRepoDelete(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	if err := s.git.DeleteRepo(r.Context(), repoName); err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	jsonResponse(w, map[string]string{"status": "success"}, http.StatusOK)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	maxCount := 20
	if v := r.URL.Query().Get("max_count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 200 {
			apiError(w, "Invalid max_count", http.StatusBadRequest)
			return
		}
		maxCount = n
	}

	commits, err := s.git.Commits(r.Context(), repoName, maxCount)
	if err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	if commits == nil {
		commits = []gitapi.Commit{}
	}
	jsonResponse(w, commits, http.StatusOK)
}

func (s *Server) handlePageList(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo")

	pages, err := s.git.ListPages(r.Context(), repoName)
	if err != nil {
		apiError(w, err.Error(), backendStatus(err))
		return
	}
	if pages == nil {
		pages = []gitapi.PageSummary{}
	}
	jsonResponse(w, pages, http.StatusOK)
}

// GitHub proxy handlers

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repoName := chi.URLParam(r, "repo")

	issues, err := s.github.OpenIssues(r.Context(), owner, repoName)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, issues, http.StatusOK)
}

func (s *Server) handlePulls(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repoName := chi.URLParam(r, "repo")

	pulls, err := s.github.OpenPulls(r.Context(), owner, repoName)
	if err != nil {
		apiError(w, err.Error(), http.StatusBadGateway)
		return
	}
	jsonResponse(w, pulls, http.StatusOK)
}

// Navigation handlers

func (s *Server) handleViewRedirect(w http.ResponseWriter, r *http.Request) {
	target := nav.Parse(chi.URLParam(r, "owner"), chi.URLParam(r, "repo"), "", "")

	redirected, ok := nav.Redirect(target, s.cfg.Workspace.DefaultBranch)
	if !ok {
		apiError(w, "Invalid repository path", http.StatusBadRequest)
		return
	}

	// A returning visitor reopens where they left off instead of the
	// default branch.
	if s.db != nil {
		store := db.NewVisitStore(s.db, s.cfg.Backend.UserID)
		if v, err := store.LastVisit(r.Context(), target.RepoRef()); err == nil && v != nil && v.Branch != "" {
			redirected.Branch = v.Branch
			redirected.Path = v.Path
		}
	}

	// The destination carries an explicit branch, so it routes to
	// handleView and never redirects again. A missing branch surfaces as
	// a branch error in the workspace, not another redirect.
	http.Redirect(w, r, "/view"+redirected.URLPath(), http.StatusFound)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	target := nav.Parse(
		chi.URLParam(r, "owner"),
		chi.URLParam(r, "repo"),
		chi.URLParam(r, "branch"),
		chi.URLParam(r, "*"),
	)

	jsonResponse(w, map[string]interface{}{
		"target":    target,
		"url_path":  target.URLPath(),
		"websocket": "/ws/workspace" + target.URLPath(),
	}, http.StatusOK)
}
