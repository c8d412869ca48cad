// internal/api/handler.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/go-github/v62/github"

	custom_errors "github-repo-dashboard/internal/errors"
	"github-repo-dashboard/internal/model"
	"github-repo-dashboard/internal/syncer"
)

const maxBodyBytes = 1 << 20

// GitHubService is the part of the GitHub client the proxy needs.
type GitHubService interface {
	AuthCodeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListRepositories(ctx context.Context, token string, page int) ([]*github.Repository, error)
	GetUser(ctx context.Context, token string) (*github.User, error)
	CreateRepository(ctx context.Context, token string, req model.CreateRepositoryRequest) (*github.Repository, error)
	GetRepositoryByID(ctx context.Context, token string, id int64) (*github.Repository, error)
	ListLanguages(ctx context.Context, token string, id int64) (map[string]int, error)
}

// CodeReviewer reviews code snippets.
type CodeReviewer interface {
	Review(ctx context.Context, snippet string) (string, error)
}

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Handler is the container for API dependencies.
type Handler struct {
	gh       GitHubService
	reviewer CodeReviewer
	logger   *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(gh GitHubService, reviewer CodeReviewer, opts RouterOptions, logger *slog.Logger) http.Handler {
	h := &Handler{
		gh:       gh,
		reviewer: reviewer,
		logger:   logger,
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/health", h.healthCheck)

	r.Get("/auth/github", h.login)
	r.Get("/auth/github/callback", h.oauthCallback)
	r.Post("/codeReview", h.codeReview)

	r.Group(func(r chi.Router) {
		r.Use(RequireToken)
		r.Get("/fetch-repos", h.fetchRepos)
		r.Get("/user", h.getUser)
		r.Post("/create-repo", h.createRepo)
		r.Get("/repo/{id}", h.getRepo)
		r.Get("/repo/{id}/languages", h.getLanguages)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// login redirects the browser to GitHub's authorize page.
// GET /auth/github
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.gh.AuthCodeURL(), http.StatusFound)
}

// oauthCallback exchanges the authorization code for an access token.
// GET /auth/github/callback?code=...
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'code' parameter")
		return
	}

	token, err := h.gh.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("Failed to exchange oauth code", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Error during authentication")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"accessToken": token})
}

// fetchRepos returns one page of the user's repositories.
// GET /fetch-repos?page=N
func (h *Handler) fetchRepos(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			respondWithError(w, http.StatusBadRequest, "Invalid 'page' parameter. Must be a positive integer.")
			return
		}
		page = n
	}

	repos, err := h.gh.ListRepositories(r.Context(), TokenFromContext(r.Context()), page)
	if err != nil {
		h.upstreamError(w, err, "Repositories", "Failed to fetch repositories")
		return
	}

	respondWithJSON(w, http.StatusOK, repos)
}

// getUser returns the authenticated user.
// GET /user
func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.gh.GetUser(r.Context(), TokenFromContext(r.Context()))
	if err != nil {
		h.upstreamError(w, err, "User", "Failed to fetch user details")
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// createRepo creates a repository for the authenticated user.
// POST /create-repo
func (h *Handler) createRepo(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRepositoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Visibility == "" {
		respondWithError(w, http.StatusBadRequest, "Repository name and visibility are required")
		return
	}
	if _, err := model.ParseVisibility(req.Visibility); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	repo, err := h.gh.CreateRepository(r.Context(), TokenFromContext(r.Context()), req)
	if err != nil {
		h.upstreamError(w, err, "Owner", "Failed to create repository")
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Repository created successfully",
		"repo":    repo,
	})
}

// getRepo returns repository details.
// GET /repo/{id}
func (h *Handler) getRepo(w http.ResponseWriter, r *http.Request) {
	id, ok := repoID(w, r)
	if !ok {
		return
	}

	repo, err := h.gh.GetRepositoryByID(r.Context(), TokenFromContext(r.Context()), id)
	if err != nil {
		h.upstreamError(w, err, "Repository", "Error fetching repository details")
		return
	}
	respondWithJSON(w, http.StatusOK, repo)
}

// getLanguages returns language bytes and their percentages.
// GET /repo/{id}/languages
func (h *Handler) getLanguages(w http.ResponseWriter, r *http.Request) {
	id, ok := repoID(w, r)
	if !ok {
		return
	}

	languages, err := h.gh.ListLanguages(r.Context(), TokenFromContext(r.Context()), id)
	if err != nil {
		h.upstreamError(w, err, "Repository", "Error fetching repository languages")
		return
	}
	if languages == nil {
		languages = map[string]int{}
	}

	respondWithJSON(w, http.StatusOK, model.LanguageBreakdown{
		Languages:   languages,
		Percentages: syncer.LanguagePercentages(languages),
	})
}

// codeReview asks the language model to review a snippet.
// POST /codeReview
func (h *Handler) codeReview(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CodeSnippet string `json:"codeSnippet"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(body.CodeSnippet) == "" {
		respondWithError(w, http.StatusBadRequest, "'codeSnippet' is required")
		return
	}

	review, err := h.reviewer.Review(r.Context(), body.CodeSnippet)
	if err != nil {
		if errors.Is(err, custom_errors.ErrReviewerDisabled) {
			respondWithError(w, http.StatusServiceUnavailable, "Code review is not configured")
			return
		}
		h.logger.Error("Failed to review code snippet", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to review code snippet")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"review": review})
}

func repoID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid repository id")
		return 0, false
	}
	return id, true
}

// upstreamError maps a GitHub failure onto the proxy's response. resource
// names what was missing when GitHub answers 404.
func (h *Handler) upstreamError(w http.ResponseWriter, err error, resource, message string) {
	var pageErr *custom_errors.ErrInvalidPage
	switch {
	case errors.Is(err, custom_errors.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Invalid or expired access token")
	case errors.Is(err, custom_errors.ErrForbidden):
		respondWithError(w, http.StatusForbidden, "Access to the repository is forbidden")
	case errors.Is(err, custom_errors.ErrNotFound):
		respondWithError(w, http.StatusNotFound, resource+" not found")
	case errors.As(err, &pageErr):
		respondWithError(w, http.StatusBadRequest, pageErr.Error())
	default:
		h.logger.Error(message, "error", err)
		respondWithError(w, http.StatusInternalServerError, message)
	}
}
