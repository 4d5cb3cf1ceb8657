package identity

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultKeyURL serves the identity provider's current token-signing
// certificates as a JSON object of kid -> PEM certificate.
const defaultKeyURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

// issuerPrefix is the expected token issuer prefix; the full issuer is
// issuerPrefix + project id.
const issuerPrefix = "https://securetoken.google.com/"

// defaultKeyTTL bounds how long fetched signing keys are reused when the
// provider response carries no usable Cache-Control max-age. One hour is
// conservative relative to provider-side rotation cadence.
const defaultKeyTTL = time.Hour

// Claims are the token claims the marketplace cares about.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

// Verifier validates bearer tokens issued for a single project. Verification
// is fully local once signing keys are cached; the only network round-trip is
// the key fetch on a cold or expired cache.
type Verifier struct {
	projectID  string
	issuer     string
	keyURL     string
	keyTTL     time.Duration
	httpClient *http.Client

	// keys holds the current signing-key set. Key sets are replaced
	// wholesale on refresh, never mutated, so concurrent readers race on
	// a cold cache at worst: every racer fetches, the last store wins.
	keys atomic.Pointer[keySet]
}

// keySet is an immutable snapshot of the provider's signing keys.
type keySet struct {
	keys    map[string]*rsa.PublicKey
	expires time.Time
}

// VerifierConfig holds configuration for a Verifier.
type VerifierConfig struct {
	ProjectID   string
	KeyURL      string        // defaults to the provider's x509 endpoint
	KeyTTL      time.Duration // fallback cache TTL, default 1h
	HTTPTimeout time.Duration // key fetch timeout, default 10s
}

// NewVerifier creates a token verifier for the given project.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.KeyURL == "" {
		cfg.KeyURL = defaultKeyURL
	}
	if cfg.KeyTTL == 0 {
		cfg.KeyTTL = defaultKeyTTL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}

	return &Verifier{
		projectID: cfg.ProjectID,
		issuer:    issuerPrefix + cfg.ProjectID,
		keyURL:    cfg.KeyURL,
		keyTTL:    cfg.KeyTTL,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

// ProjectID returns the project identifier this verifier accepts as audience.
func (v *Verifier) ProjectID() string {
	return v.projectID
}

// Verify validates the raw Authorization header value and returns the caller
// identity. On failure it returns the most specific rejection: a wrapped
// ErrMissingCredential, ErrMalformedCredential, ErrInvalidSignature,
// ErrExpired, ErrWrongAudience or ErrWrongIssuer.
func (v *Verifier) Verify(ctx context.Context, authorizationHeader string) (Identity, error) {
	tokenString, err := bearerToken(authorizationHeader)
	if err != nil {
		return Identity{}, err
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: token header has no kid", ErrMalformedCredential)
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Identity{}, mapTokenError(err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidSignature
	}

	if claims.Issuer != v.issuer {
		return Identity{}, fmt.Errorf("%w: got %q", ErrWrongIssuer, claims.Issuer)
	}
	if !containsAudience(claims.Audience, v.projectID) {
		return Identity{}, fmt.Errorf("%w: got %v", ErrWrongAudience, claims.Audience)
	}

	return Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Source:  SourceVerifiedToken,
	}, nil
}

// bearerToken extracts the token from a bearer-style Authorization value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredential
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: authorization header is not a bearer credential", ErrMissingCredential)
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", fmt.Errorf("%w: empty bearer token", ErrMissingCredential)
	}
	return token, nil
}

// mapTokenError converts jwt parse failures to the rejection taxonomy,
// keeping the original error wrapped for server-side logs.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, ErrMissingCredential),
		errors.Is(err, ErrMalformedCredential),
		errors.Is(err, ErrExpired),
		errors.Is(err, ErrWrongAudience),
		errors.Is(err, ErrWrongIssuer),
		errors.Is(err, ErrInvalidSignature):
		return err
	case errors.Is(err, jwt.ErrTokenExpired),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
}

func containsAudience(audiences jwt.ClaimStrings, projectID string) bool {
	for _, aud := range audiences {
		if aud == projectID {
			return true
		}
	}
	return false
}

// publicKey returns the signing key for kid, fetching a fresh key set when
// the cache is cold, expired, or does not know the kid (rotation suspicion).
func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if set := v.keys.Load(); set != nil && time.Now().Before(set.expires) {
		if key, ok := set.keys[kid]; ok {
			return key, nil
		}
	}

	set, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	key, ok := set.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: signing key %q not found", ErrInvalidSignature, kid)
	}
	return key, nil
}

// fetchKeys retrieves the provider's current certificates and atomically
// replaces the cached key set. Concurrent fetches are safe; the last
// successful store wins.
func (v *Verifier) fetchKeys(ctx context.Context) (*keySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create key request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch signing keys: status code %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return nil, fmt.Errorf("failed to decode signing keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, cert := range certs {
		key, err := certToRSAPublicKey(cert)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %q: %w", kid, err)
		}
		keys[kid] = key
	}

	set := &keySet{
		keys:    keys,
		expires: time.Now().Add(cacheTTL(resp.Header.Get("Cache-Control"), v.keyTTL)),
	}
	v.keys.Store(set)
	return set, nil
}

// certToRSAPublicKey extracts the RSA public key from a PEM certificate.
func certToRSAPublicKey(pemCert string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemCert))
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("certificate does not carry an RSA public key")
	}
	return key, nil
}

// cacheTTL derives the key cache lifetime from the provider's Cache-Control
// max-age, falling back to the configured TTL.
func cacheTTL(cacheControl string, fallback time.Duration) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second
			}
		}
	}
	return fallback
}
