// Package tags is the tag vocabulary endpoint. It carries its own auth
// boundary and CORS guard so it can be deployed standalone or mounted into
// the monolith unchanged.
package tags

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ontoverse/marketplace/auth"
	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/middleware"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/utils"
	"go.uber.org/zap"
)

// Module serves GET / and POST /.
type Module struct {
	boundary *auth.Boundary
	cors     *middleware.CORSGuard
	repo     repositories.TagRepository
	logger   *zap.Logger
}

// New wires the tags endpoint from startup configuration.
func New(cfg *config.Config, verifier auth.TokenVerifier, repo repositories.TagRepository, logger *zap.Logger) *Module {
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
	r.Get("/", m.handleList)
	r.Post("/", m.handleAdd)
	return r
}

func (m *Module) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := m.repo.List(r.Context())
	if err != nil {
		m.logger.Error("list tags failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to list tags")
		return
	}

	_ = utils.WriteOK(w, "Tags retrieved successfully", map[string]interface{}{
		"tags": names,
	})
}

// addRequest is the body for POST /.
type addRequest struct {
	Tags []string `json:"tags"`
}

func (m *Module) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload addRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Request body must carry tags")
		return
	}

	names, err := m.repo.Add(r.Context(), payload.Tags)
	if err != nil {
		m.logger.Error("add tags failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to add tags")
		return
	}

	_ = utils.WriteOK(w, "Tags merged successfully", map[string]interface{}{
		"tags": names,
	})
}
