package auth

import (
	"net/http"
	"strings"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/identity"
)

// devEmailHeader lets a local caller pick the bypass identity per request.
const devEmailHeader = "X-Dev-Email"

// resolveBypass derives a caller identity without token verification. It is
// only ever called while the bypass flag is enabled; callers guard that.
//
// Resolution order: the per-request X-Dev-Email header when non-empty, then
// the configured default email. When neither yields an email the bypass is
// absent and the caller falls through to real token verification, so a
// misconfigured bypass never becomes an anonymous grant.
func resolveBypass(headers http.Header, cfg config.AuthConfig) (identity.Identity, bool) {
	email := strings.TrimSpace(headers.Get(devEmailHeader))
	if email == "" {
		email = strings.TrimSpace(cfg.BypassDefaultEmail)
	}
	if email == "" {
		return identity.Identity{}, false
	}

	return identity.Identity{
		Subject: email,
		Email:   email,
		Source:  identity.SourceDevBypass,
	}, true
}
