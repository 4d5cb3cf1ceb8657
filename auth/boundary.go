// Package auth is the authentication boundary every endpoint module invokes
// before domain logic. It is a statically linked library rather than a
// router-mounted middleware stack so that endpoints packaged as standalone
// function binaries enforce exactly the same policy as the monolith.
package auth

import (
	"context"
	"net/http"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/utils"
	"go.uber.org/zap"
)

// TokenVerifier validates a raw Authorization header value and returns the
// verified caller identity.
type TokenVerifier interface {
	Verify(ctx context.Context, authorizationHeader string) (identity.Identity, error)
}

// Boundary composes the token verifier and the dev bypass gate. Each endpoint
// module constructs its own Boundary; there is no shared runtime instance.
type Boundary struct {
	cfg      config.AuthConfig
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewBoundary creates an auth boundary from immutable startup configuration.
func NewBoundary(cfg config.AuthConfig, verifier TokenVerifier, logger *zap.Logger) *Boundary {
	return &Boundary{
		cfg:      cfg,
		verifier: verifier,
		logger:   logger,
	}
}

// Authenticate resolves the caller identity for one request.
//
// When the bypass flag is enabled the bypass gate is consulted first, so a
// bypass-enabled local environment still works with a real token if one is
// supplied and no dev email resolves. When the flag is disabled the bypass
// path is unreachable and any X-Dev-Email header is inert.
//
// Credential failures are final; the boundary never retries.
func (b *Boundary) Authenticate(r *http.Request) (identity.Identity, error) {
	if b.cfg.BypassEnabled {
		if id, ok := resolveBypass(r.Header, b.cfg); ok {
			b.logger.Debug("dev bypass identity resolved",
				zap.String("subject", id.Subject))
			return id, nil
		}
	}

	id, err := b.verifier.Verify(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// Require wraps a handler with the boundary. Failed requests receive a 401
// with a generic message; the precise rejection reason goes to the log only.
// On success the identity is attached to the request context.
func (b *Boundary) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := b.Authenticate(r)
		if err != nil {
			b.logger.Warn("authentication failed",
				zap.String("reason", identity.Reason(err)),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		// A cancelled request never gets an identity attached.
		if r.Context().Err() != nil {
			return
		}

		b.logger.Debug("authentication successful",
			zap.String("subject", id.Subject),
			zap.String("source", string(id.Source)))

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
