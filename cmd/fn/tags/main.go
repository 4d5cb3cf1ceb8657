// Command tags serves the tag vocabulary endpoint as a standalone function.
package main

import (
	"net/http"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/endpoints/tags"
	"github.com/ontoverse/marketplace/fnserve"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/repositories/postgres"
	"go.uber.org/zap"
)

func main() {
	fnserve.Run("tags", func(cfg *config.Config, verifier *identity.Verifier, db *postgres.DB, logger *zap.Logger) http.Handler {
		repo := postgres.NewTagRepository(db, logger)
		return tags.New(cfg, verifier, repo, logger).Handler()
	})
}
