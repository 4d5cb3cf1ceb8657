package postgres

import (
	"context"
	"fmt"
)

// schemaStatements bootstrap the marketplace tables. Idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		uuid UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ontologies (
		uuid UUID PRIMARY KEY,
		name TEXT NOT NULL,
		source_url TEXT NOT NULL UNIQUE,
		image_url TEXT,
		description TEXT,
		node_count BIGINT,
		relationship_count BIGINT,
		score DOUBLE PRECISION,
		is_public BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ontology_grants (
		user_uuid UUID NOT NULL REFERENCES users(uuid) ON DELETE CASCADE,
		ontology_uuid UUID NOT NULL REFERENCES ontologies(uuid) ON DELETE CASCADE,
		role TEXT NOT NULL CHECK (role IN ('created', 'can_edit', 'can_delete', 'can_admin')),
		PRIMARY KEY (user_uuid, ontology_uuid, role)
	)`,
	`CREATE TABLE IF NOT EXISTS ontology_likes (
		user_uuid UUID NOT NULL REFERENCES users(uuid) ON DELETE CASCADE,
		ontology_uuid UUID NOT NULL REFERENCES ontologies(uuid) ON DELETE CASCADE,
		PRIMARY KEY (user_uuid, ontology_uuid)
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		name TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS ontology_tags (
		ontology_uuid UUID NOT NULL REFERENCES ontologies(uuid) ON DELETE CASCADE,
		tag_name TEXT NOT NULL REFERENCES tags(name) ON DELETE CASCADE,
		PRIMARY KEY (ontology_uuid, tag_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ontologies_created_at ON ontologies (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ontology_grants_user ON ontology_grants (user_uuid)`,
}

// EnsureSchema creates the marketplace tables when they do not exist yet.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	db.logger.Info("database schema ensured")
	return nil
}
