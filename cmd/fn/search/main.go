// Command search serves the listing search endpoint as a standalone function.
package main

import (
	"net/http"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/endpoints/search"
	"github.com/ontoverse/marketplace/fnserve"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/repositories/postgres"
	"go.uber.org/zap"
)

func main() {
	fnserve.Run("search", func(cfg *config.Config, verifier *identity.Verifier, db *postgres.DB, logger *zap.Logger) http.Handler {
		repo := postgres.NewOntologyRepository(db, logger)
		return search.New(cfg, verifier, repo, logger).Handler()
	})
}
