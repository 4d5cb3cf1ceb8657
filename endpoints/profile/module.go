// Package profile is the caller profile endpoint. It carries its own auth
// boundary and CORS guard so it can be deployed standalone or mounted into
// the monolith unchanged.
package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/ontoverse/marketplace/auth"
	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/middleware"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/utils"
	"go.uber.org/zap"
)

// Module serves GET /me.
type Module struct {
	boundary   *auth.Boundary
	cors       *middleware.CORSGuard
	ontologies repositories.OntologyRepository
	logger     *zap.Logger
}

// New wires the profile endpoint from startup configuration.
func New(cfg *config.Config, verifier auth.TokenVerifier, ontologies repositories.OntologyRepository, logger *zap.Logger) *Module {
	return &Module{
		boundary:   auth.NewBoundary(cfg.Auth, verifier, logger),
		cors:       middleware.NewCORSGuard(cfg.CORS),
		ontologies: ontologies,
		logger:     logger,
	}
}

// Handler returns the module's routes with both guards applied, CORS first.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(m.cors.Handler)
	r.Use(m.boundary.Require)
	r.Get("/me", m.handleMe)
	return r
}

// meResponse is the body for GET /me.
type meResponse struct {
	Subject            string      `json:"subject"`
	Email              string      `json:"email,omitempty"`
	Source             string      `json:"source"`
	EditableOntologies []uuid.UUID `json:"editable_ontologies"`
}

func (m *Module) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	email := caller.Email
	if email == "" {
		email = caller.Subject
	}

	editable, err := m.ontologies.EditableIDs(r.Context(), email)
	if err != nil {
		m.logger.Error("editable ontologies lookup failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to load profile")
		return
	}

	_ = utils.WriteOK(w, "Profile retrieved successfully", meResponse{
		Subject:            caller.Subject,
		Email:              caller.Email,
		Source:             string(caller.Source),
		EditableOntologies: editable,
	})
}
