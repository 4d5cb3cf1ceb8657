// Package catalog is the listing management endpoint: batch add, delete,
// update, and like. It carries its own auth boundary and CORS guard so it can
// be deployed standalone or mounted into the monolith unchanged.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ontoverse/marketplace/auth"
	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/middleware"
	"github.com/ontoverse/marketplace/models"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/utils"
	"go.uber.org/zap"
)

// Module serves POST /, DELETE /, PUT /{id} and POST /{id}/like.
type Module struct {
	boundary *auth.Boundary
	cors     *middleware.CORSGuard
	repo     repositories.OntologyRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// New wires the catalog endpoint from startup configuration.
func New(cfg *config.Config, verifier auth.TokenVerifier, repo repositories.OntologyRepository, logger *zap.Logger) *Module {
	return &Module{
		boundary: auth.NewBoundary(cfg.Auth, verifier, logger),
		cors:     middleware.NewCORSGuard(cfg.CORS),
		repo:     repo,
		validate: validator.New(),
		logger:   logger,
	}
}

// Handler returns the module's routes with both guards applied, CORS first.
func (m *Module) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(m.cors.Handler)
	r.Use(m.boundary.Require)
	r.Post("/", m.handleAdd)
	r.Delete("/", m.handleDelete)
	r.Put("/{id}", m.handleUpdate)
	r.Post("/{id}/like", m.handleLike)
	return r
}

func (m *Module) handleAdd(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var payload []models.NewOntology
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Request body must be a JSON array of ontologies")
		return
	}
	if len(payload) == 0 {
		_ = utils.WriteBadRequest(w, "No ontologies provided")
		return
	}

	now := time.Now()
	ontologies := make([]*models.Ontology, 0, len(payload))
	for i := range payload {
		if err := m.validate.Struct(&payload[i]); err != nil {
			_ = utils.WriteBadRequest(w, fmt.Sprintf("Invalid ontology at index %d: %v", i, err))
			return
		}
		ontologies = append(ontologies, payload[i].Ontology(now))
	}

	created, err := m.repo.Add(r.Context(), callerEmail(caller), ontologies)
	if err != nil {
		m.logger.Error("add ontologies failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to add ontologies")
		return
	}

	message := fmt.Sprintf("Successfully added %d ontologies. Skipped %d ontologies that already existed.",
		len(created), len(ontologies)-len(created))
	_ = utils.WriteCreated(w, message, map[string]interface{}{
		"created_ontologies": created,
	})
}

// deleteRequest is the body for DELETE /.
type deleteRequest struct {
	OntologyIDs []uuid.UUID `json:"ontology_ids" validate:"required,min=1"`
}

func (m *Module) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var payload deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Request body must carry ontology_ids")
		return
	}
	if err := m.validate.Struct(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "No ontology IDs provided")
		return
	}

	deleted, err := m.repo.Delete(r.Context(), callerEmail(caller), payload.OntologyIDs)
	if err != nil {
		m.logger.Error("delete ontologies failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to delete ontologies")
		return
	}

	if deleted == 0 {
		_ = utils.WriteNotFound(w, "No ontologies found with the provided IDs for the given user")
		return
	}

	_ = utils.WriteOK(w, fmt.Sprintf("Successfully deleted %d ontologies", deleted), map[string]interface{}{
		"deleted_count": deleted,
	})
}

func (m *Module) handleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid ontology ID")
		return
	}

	var payload models.UpdateOntology
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Request body must be an ontology patch")
		return
	}
	if err := m.validate.Struct(&payload); err != nil {
		_ = utils.WriteBadRequest(w, fmt.Sprintf("Invalid ontology patch: %v", err))
		return
	}

	updated, err := m.repo.Update(r.Context(), callerEmail(caller), id, &payload)
	switch {
	case errors.Is(err, repositories.ErrNotAuthorized):
		_ = utils.WriteForbidden(w, "You cannot edit this ontology")
		return
	case errors.Is(err, repositories.ErrNotFound):
		_ = utils.WriteNotFound(w, "Ontology not found")
		return
	case err != nil:
		m.logger.Error("update ontology failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to update ontology")
		return
	}

	_ = utils.WriteOK(w, "Ontology updated successfully", updated)
}

func (m *Module) handleLike(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.FromContext(r.Context())
	if !ok {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid ontology ID")
		return
	}

	likes, err := m.repo.Like(r.Context(), callerEmail(caller), id)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		_ = utils.WriteNotFound(w, "Ontology not found")
		return
	case err != nil:
		m.logger.Error("like ontology failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to like ontology")
		return
	}

	_ = utils.WriteOK(w, "Ontology liked", map[string]interface{}{
		"ontology_id": id,
		"likes":       likes,
	})
}

// callerEmail keys storage by the caller's email, falling back to the subject
// for tokens that carry none.
func callerEmail(id identity.Identity) string {
	if id.Email != "" {
		return id.Email
	}
	return id.Subject
}
