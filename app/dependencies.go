package app

import (
	"context"
	"fmt"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/endpoints/catalog"
	"github.com/ontoverse/marketplace/endpoints/profile"
	"github.com/ontoverse/marketplace/endpoints/search"
	"github.com/ontoverse/marketplace/endpoints/tags"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/repositories/postgres"
	"go.uber.org/zap"
)

// Dependencies holds everything the monolith wires at startup. This is the
// central dependency-injection point for the single-process deployment; the
// cmd/fn binaries wire their single module by hand instead and never import
// this package.
//
// Note that there is no shared auth middleware here: each endpoint module
// builds its own boundary and guard from the same immutable configuration.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	DB       *postgres.DB
	Logger   *zap.Logger
	Verifier *identity.Verifier

	// Repositories
	Ontologies repositories.OntologyRepository
	Tags       repositories.TagRepository
	Users      repositories.UserRepository

	// Endpoint modules
	Search  *search.Module
	Catalog *catalog.Module
	TagList *tags.Module
	Profile *profile.Module
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Credential resolution happens exactly once per process; an
	// unresolvable verifier aborts startup.
	verifier, err := identity.Resolve(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	deps.Verifier = verifier
	logger.Info("token verifier initialized",
		zap.String("project_id", verifier.ProjectID()),
		zap.Bool("dev_bypass", cfg.Auth.BypassEnabled))

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	deps.Ontologies = postgres.NewOntologyRepository(db, logger)
	deps.Tags = postgres.NewTagRepository(db, logger)
	deps.Users = postgres.NewUserRepository(db, logger)

	deps.Search = search.New(cfg, verifier, deps.Ontologies, logger)
	deps.Catalog = catalog.New(cfg, verifier, deps.Ontologies, logger)
	deps.TagList = tags.New(cfg, verifier, deps.Tags, logger)
	deps.Profile = profile.New(cfg, verifier, deps.Ontologies, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close() error {
	d.Logger.Info("shutting down dependencies")

	var errs []error
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
