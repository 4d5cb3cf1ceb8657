package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/ontoverse/marketplace/app"
	"github.com/ontoverse/marketplace/utils"
)

// SetupRoutes mounts every endpoint module on the monolith router.
//
// Only plumbing middleware lives at the router level. Authentication and
// CORS are deliberately NOT mounted here: each module applies its own
// boundary and guard, so the monolith behaves identically to the
// function-per-endpoint deployment.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoints; unauthenticated by design.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.WriteOK(w, "ok", nil)
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.HealthCheck(req.Context()); err != nil {
			_ = utils.WriteJSON(w, http.StatusServiceUnavailable, utils.Response{
				Success: false,
				Message: "database unavailable",
			})
			return
		}
		_ = utils.WriteOK(w, "ready", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/search", deps.Search.Handler())
		r.Mount("/ontologies", deps.Catalog.Handler())
		r.Mount("/tags", deps.TagList.Handler())
		r.Mount("/users", deps.Profile.Handler())
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
