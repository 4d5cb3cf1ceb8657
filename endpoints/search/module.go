// Package search is the listing search endpoint. Like every endpoint module
// it carries its own auth boundary and CORS guard so it can be deployed as a
// standalone function binary or mounted into the monolith unchanged.
package search

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ontoverse/marketplace/auth"
	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/middleware"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/utils"
	"go.uber.org/zap"
)

// Module serves GET /?search_term=&limit=&offset=.
type Module struct {
	boundary *auth.Boundary
	cors     *middleware.CORSGuard
	repo     repositories.OntologyRepository
	logger   *zap.Logger
}

// New wires the search endpoint from startup configuration.
func New(cfg *config.Config, verifier auth.TokenVerifier, repo repositories.OntologyRepository, logger *zap.Logger) *Module {
	return &Module{
		boundary: auth.NewBoundary(cfg.Auth, verifier, logger),
		cors:     middleware.NewCORSGuard(cfg.CORS),
		repo:     repo,
		logger:   logger,
	}
}

// Handler returns the module's routes with both guards applied, CORS first.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(m.cors.Handler)
	r.Use(m.boundary.Require)
	r.Get("/", m.handleSearch)
	return r
}

func (m *Module) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search_term")
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	page, err := m.repo.Search(r.Context(), term, limit, offset)
	if err != nil {
		m.logger.Error("search failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Database error occurred")
		return
	}

	_ = utils.WriteOK(w, "Ontologies retrieved successfully", page)
}

// queryInt parses an integer query parameter, falling back on absence or junk.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
