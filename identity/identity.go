package identity

import "errors"

// Source tags how a caller identity was established.
type Source string

const (
	// SourceVerifiedToken marks identities proven by a signed bearer token.
	SourceVerifiedToken Source = "verified-token"
	// SourceDevBypass marks identities granted by the dev bypass. Only
	// producible while the bypass flag is enabled.
	SourceDevBypass Source = "dev-bypass"
)

// Identity is the caller identity handed to domain logic. It is built fresh
// for each request and lives only in that request's context.
type Identity struct {
	// Subject is the unique caller identifier: the token's sub claim for
	// verified tokens, the resolved email for bypass identities.
	Subject string
	// Email is the caller's email address; may be empty for tokens
	// without an email claim.
	Email string
	// Source records which identity source produced this value.
	Source Source
}

// Rejection reasons, most specific first. Verification returns exactly one of
// these (possibly wrapped) so callers can log a precise reason without
// exposing cryptographic detail to the client.
var (
	// ErrMissingCredential is returned when no bearer credential is present
	ErrMissingCredential = errors.New("missing credential")

	// ErrMalformedCredential is returned when the credential is not a parseable token
	ErrMalformedCredential = errors.New("malformed credential")

	// ErrInvalidSignature is returned when the token signature does not verify
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrExpired is returned when the token is outside its validity window
	ErrExpired = errors.New("token expired")

	// ErrWrongAudience is returned when the token audience does not match the project
	ErrWrongAudience = errors.New("wrong audience")

	// ErrWrongIssuer is returned when the token issuer does not match the provider
	ErrWrongIssuer = errors.New("wrong issuer")
)

// Reason maps a verification error to its stable reason code for logs and
// audit trails. Unknown errors map to "invalid-signature" rather than
// inventing a new code.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing-credential"
	case errors.Is(err, ErrMalformedCredential):
		return "malformed-credential"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrWrongAudience):
		return "wrong-audience"
	case errors.Is(err, ErrWrongIssuer):
		return "wrong-issuer"
	default:
		return "invalid-signature"
	}
}
