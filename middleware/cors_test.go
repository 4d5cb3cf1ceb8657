package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ontoverse/marketplace/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(t *testing.T, guard *CORSGuard, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, "/api/v1/search", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	guard.Handler(okHandler()).ServeHTTP(rec, r)
	return rec
}

func TestAllowed_Wildcard(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"*"}})

	assert.True(t, guard.Allowed("https://anything.example"))
	assert.True(t, guard.Allowed("http://localhost:3000"))
	assert.True(t, guard.Allowed(""))
}

func TestAllowed_ExactMatchOnly(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	assert.True(t, guard.Allowed("https://a.example"))

	// No normalization: scheme, port and case variants are distinct origins.
	assert.False(t, guard.Allowed("https://a.example:443"))
	assert.False(t, guard.Allowed("http://a.example"))
	assert.False(t, guard.Allowed("https://A.example"))
	assert.False(t, guard.Allowed("https://sub.a.example"))
}

func TestAllowed_EmptyOriginNotCrossOrigin(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})
	assert.True(t, guard.Allowed(""))
}

func TestHandler_DisallowedOriginRejected(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	rec := doRequest(t, guard, http.MethodGet, "https://evil.example")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_AllowedOriginEchoed(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	rec := doRequest(t, guard, http.MethodGet, "https://a.example")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestHandler_WildcardHeader(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"*"}})

	rec := doRequest(t, guard, http.MethodGet, "https://anything.example")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_SameOriginPassthrough(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	rec := doRequest(t, guard, http.MethodGet, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	// No Origin header means no CORS headers on the response.
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestHandler_PreflightShortCircuit(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	r := httptest.NewRequest(http.MethodOptions, "/api/v1/search", nil)
	r.Header.Set("Origin", "https://a.example")
	rec := httptest.NewRecorder()
	guard.Handler(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, reached, "preflight must be answered before the rest of the module")
	assert.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestHandler_PreflightDisallowedOrigin(t *testing.T) {
	guard := NewCORSGuard(config.CORSConfig{AllowedOrigins: []string{"https://a.example"}})

	rec := doRequest(t, guard, http.MethodOptions, "https://evil.example")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
