// Package fnserve boots a single endpoint module as its own serverless-style
// process. Every cmd/fn binary goes through Run, so each function deployment
// performs the same fatal-on-misconfiguration startup as the monolith:
// resolve credentials once, connect storage, then serve exactly one module.
package fnserve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/observability"
	"github.com/ontoverse/marketplace/repositories/postgres"
	"go.uber.org/zap"
)

// BuildFunc assembles the module handler from resolved process dependencies.
type BuildFunc func(cfg *config.Config, verifier *identity.Verifier, db *postgres.DB, logger *zap.Logger) http.Handler

// Run boots one endpoint module and blocks until shutdown. Configuration or
// credential failures abort the process before it ever serves a request.
func Run(name string, build BuildFunc) {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("function", name))

	if err := serve(name, cfg, logger, build); err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
}

func serve(name string, cfg *config.Config, logger *zap.Logger, build BuildFunc) error {
	verifier, err := identity.Resolve(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}
	logger.Info("token verifier initialized",
		zap.String("project_id", verifier.ProjectID()),
		zap.Bool("dev_bypass", cfg.Auth.BypassEnabled))

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      build(cfg, verifier, db, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("function listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}
	return nil
}
