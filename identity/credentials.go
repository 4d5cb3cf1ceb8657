package identity

import (
	"encoding/json"
	"fmt"

	"github.com/ontoverse/marketplace/config"
)

// ServiceAccount is the subset of the service-account document the verifier
// needs. The full JSON blob arrives through configuration as a single line.
type ServiceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccount decodes and sanity-checks a service-account JSON blob.
func ParseServiceAccount(raw string) (*ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("failed to parse service account JSON: %w", err)
	}
	if sa.Type != "service_account" {
		return nil, fmt.Errorf("unexpected credential type %q, want service_account", sa.Type)
	}
	if sa.ProjectID == "" {
		return nil, fmt.Errorf("service account document has no project_id")
	}
	return &sa, nil
}

// Resolve builds the process-wide token verifier from startup configuration.
// It is called exactly once per process; a failure here is fatal and the
// service must not start, since every protected endpoint depends on it.
//
// The project identifier comes from configuration when present (the env
// names are tried in priority order by the config package) and otherwise
// from the service-account document itself.
func Resolve(cfg config.AuthConfig) (*Verifier, error) {
	projectID := cfg.ProjectID

	if cfg.ServiceAccountJSON != "" {
		sa, err := ParseServiceAccount(cfg.ServiceAccountJSON)
		if err != nil {
			return nil, err
		}
		if projectID == "" {
			projectID = sa.ProjectID
		}
	}

	if projectID == "" {
		return nil, fmt.Errorf("no project identifier resolvable from environment or service account")
	}

	return NewVerifier(VerifierConfig{ProjectID: projectID}), nil
}
