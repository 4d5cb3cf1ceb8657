// Package middleware holds the cross-origin policy guard shared by all
// endpoint modules. Like the auth boundary, each module wires its own guard
// instance so a standalone function deployment behaves exactly like the
// monolith.
package middleware

import (
	"net/http"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/utils"
)

// Wildcard admits every origin when present in the allow-list.
const Wildcard = "*"

const (
	allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowedHeaders = "Authorization, Content-Type, X-Dev-Email"
	maxAge         = "3600"
)

// CORSGuard evaluates request origins against a configured allow-list.
// Matching is exact string comparison: no suffix or prefix matching, no
// scheme or port normalization.
type CORSGuard struct {
	allowAll bool
	origins  map[string]struct{}
}

// NewCORSGuard builds a guard from the configured allow-list.
func NewCORSGuard(cfg config.CORSConfig) *CORSGuard {
	g := &CORSGuard{
		origins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == Wildcard {
			g.allowAll = true
		}
		g.origins[origin] = struct{}{}
	}
	return g
}

// Allowed reports whether the declared origin may receive cross-origin
// responses. An empty origin means the request is not cross-origin and is
// always allowed; no CORS headers are attached for it.
func (g *CORSGuard) Allowed(origin string) bool {
	if g.allowAll || origin == "" {
		return true
	}
	_, ok := g.origins[origin]
	return ok
}

// Handler applies the policy ahead of everything else in a module, the auth
// boundary included. Preflight OPTIONS requests are answered immediately with
// 204 and never reach authentication; disallowed origins are rejected with
// 403 before authentication is attempted.
func (g *CORSGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !g.Allowed(origin) {
			_ = utils.WriteForbidden(w, "Origin not allowed")
			return
		}

		if origin != "" {
			if g.allowAll {
				w.Header().Set("Access-Control-Allow-Origin", Wildcard)
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Max-Age", maxAge)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
