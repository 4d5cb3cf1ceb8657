package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ontoverse/marketplace/models"
	"github.com/ontoverse/marketplace/repositories"
	"go.uber.org/zap"
)

// Search page size bounds mirror the public API contract.
const (
	maxSearchLimit     = 100
	defaultSearchLimit = 100
)

// editRoles and deleteRoles are the grant roles that authorize each mutation.
var (
	editRoles   = []string{models.GrantCreated, models.GrantCanEdit, models.GrantCanAdmin}
	deleteRoles = []string{models.GrantCreated, models.GrantCanDelete, models.GrantCanAdmin}
)

// OntologyRepository implements the repositories.OntologyRepository interface
type OntologyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOntologyRepository creates a new ontology repository
func NewOntologyRepository(db *DB, logger *zap.Logger) repositories.OntologyRepository {
	return &OntologyRepository{
		db:     db,
		logger: logger,
	}
}

const ontologyColumns = `uuid, name, source_url, image_url, description, node_count, relationship_count, score, is_public, created_at`

// Search returns a page of listings matching the term, newest first.
func (r *OntologyRepository) Search(ctx context.Context, term string, limit, offset int) (*models.SearchPage, error) {
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + ontologyColumns + `
		FROM ontologies
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, term, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search ontologies: %w", err)
	}
	defer rows.Close()

	results := make([]*models.Ontology, 0, limit)
	for rows.Next() {
		onto, err := scanOntology(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, onto)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	countQuery := `
		SELECT count(*)
		FROM ontologies
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%'
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, term).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count ontologies: %w", err)
	}

	return &models.SearchPage{
		Results: results,
		Count:   len(results),
		Total:   total,
		Offset:  offset,
		Limit:   limit,
	}, nil
}

// Add inserts listings, skipping duplicates by source_url, and records a
// created grant for the caller on each inserted row.
func (r *OntologyRepository) Add(ctx context.Context, email string, ontologies []*models.Ontology) ([]*models.Ontology, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	userUUID, err := ensureUser(ctx, tx, email)
	if err != nil {
		return nil, err
	}

	insertOntology := `
		INSERT INTO ontologies (` + ontologyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (source_url) DO NOTHING
		RETURNING uuid
	`
	insertGrant := `
		INSERT INTO ontology_grants (user_uuid, ontology_uuid, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`

	created := make([]*models.Ontology, 0, len(ontologies))
	for _, onto := range ontologies {
		var insertedUUID uuid.UUID
		err := tx.QueryRowContext(ctx, insertOntology,
			onto.UUID,
			onto.Name,
			onto.SourceURL,
			onto.ImageURL,
			onto.Description,
			onto.NodeCount,
			onto.RelationshipCount,
			onto.Score,
			onto.IsPublic,
			onto.CreatedAt,
		).Scan(&insertedUUID)
		if err == sql.ErrNoRows {
			// A listing with this source_url already exists; skip it.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert ontology: %w", err)
		}

		if _, err := tx.ExecContext(ctx, insertGrant, userUUID, insertedUUID, models.GrantCreated); err != nil {
			return nil, fmt.Errorf("failed to record created grant: %w", err)
		}
		created = append(created, onto)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Debug("ontologies added",
		zap.String("email", email),
		zap.Int("created", len(created)),
		zap.Int("skipped", len(ontologies)-len(created)))
	return created, nil
}

// Delete removes the listings the caller holds a delete-capable grant on.
func (r *OntologyRepository) Delete(ctx context.Context, email string, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		DELETE FROM ontologies o
		USING users u, ontology_grants g
		WHERE u.email = $1
			AND g.user_uuid = u.uuid
			AND g.ontology_uuid = o.uuid
			AND g.role = ANY($2)
			AND o.uuid = ANY($3)
	`

	res, err := r.db.ExecContext(ctx, query, email, pq.Array(deleteRoles), pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete ontologies: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}

	r.logger.Debug("ontologies deleted",
		zap.String("email", email),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

// Update patches a listing the caller may edit and replaces its tags when a
// tag set is supplied.
func (r *OntologyRepository) Update(ctx context.Context, email string, id uuid.UUID, update *models.UpdateOntology) (*models.Ontology, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	authorized := `
		SELECT EXISTS (
			SELECT 1
			FROM ontology_grants g
			JOIN users u ON u.uuid = g.user_uuid
			WHERE u.email = $1 AND g.ontology_uuid = $2 AND g.role = ANY($3)
		)
	`
	var canEdit bool
	if err := tx.QueryRowContext(ctx, authorized, email, id, pq.Array(editRoles)).Scan(&canEdit); err != nil {
		return nil, fmt.Errorf("failed to check edit grant: %w", err)
	}
	if !canEdit {
		return nil, repositories.ErrNotAuthorized
	}

	patch := `
		UPDATE ontologies SET
			name = COALESCE($2, name),
			source_url = COALESCE($3, source_url),
			image_url = COALESCE($4, image_url),
			description = COALESCE($5, description),
			node_count = COALESCE($6, node_count),
			relationship_count = COALESCE($7, relationship_count),
			score = COALESCE($8, score),
			is_public = COALESCE($9, is_public)
		WHERE uuid = $1
		RETURNING ` + ontologyColumns + `
	`
	row := tx.QueryRowContext(ctx, patch, id,
		update.Name,
		update.SourceURL,
		update.ImageURL,
		update.Description,
		update.NodeCount,
		update.RelationshipCount,
		update.Score,
		update.IsPublic,
	)
	onto, err := scanOntology(row)
	if err == sql.ErrNoRows {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if update.Tags != nil {
		if err := replaceTags(ctx, tx, id, update.Tags); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Debug("ontology updated",
		zap.String("email", email),
		zap.String("uuid", id.String()))
	return onto, nil
}

// Like records the caller's like once and returns the listing's like count.
func (r *OntologyRepository) Like(ctx context.Context, email string, id uuid.UUID) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM ontologies WHERE uuid = $1)`, id).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check ontology: %w", err)
	}
	if !exists {
		return 0, repositories.ErrNotFound
	}

	userUUID, err := ensureUser(ctx, tx, email)
	if err != nil {
		return 0, err
	}

	like := `
		INSERT INTO ontology_likes (user_uuid, ontology_uuid)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, like, userUUID, id); err != nil {
		return 0, fmt.Errorf("failed to record like: %w", err)
	}

	var likes int64
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM ontology_likes WHERE ontology_uuid = $1`, id).Scan(&likes); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return likes, nil
}

// EditableIDs returns the listing ids the caller may edit.
func (r *OntologyRepository) EditableIDs(ctx context.Context, email string) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT g.ontology_uuid
		FROM ontology_grants g
		JOIN users u ON u.uuid = g.user_uuid
		WHERE u.email = $1 AND g.role = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, email, pq.Array(editRoles))
	if err != nil {
		return nil, fmt.Errorf("failed to query editable ontologies: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ontology id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read editable ontologies: %w", err)
	}
	return ids, nil
}

// ensureUser merges the user row for email and returns its uuid.
func ensureUser(ctx context.Context, tx *sql.Tx, email string) (uuid.UUID, error) {
	query := `
		INSERT INTO users (uuid, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING uuid
	`
	var id uuid.UUID
	if err := tx.QueryRowContext(ctx, query, uuid.New(), email).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return id, nil
}

// replaceTags swaps a listing's tag set, merging new tags into the vocabulary.
func replaceTags(ctx context.Context, tx *sql.Tx, id uuid.UUID, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM ontology_tags WHERE ontology_uuid = $1`, id); err != nil {
		return fmt.Errorf("failed to clear tags: %w", err)
	}

	for _, tag := range normalizeTags(tags) {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tags (name) VALUES ($1) ON CONFLICT DO NOTHING`, tag); err != nil {
			return fmt.Errorf("failed to merge tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO ontology_tags (ontology_uuid, tag_name) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, tag); err != nil {
			return fmt.Errorf("failed to attach tag: %w", err)
		}
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOntology(row rowScanner) (*models.Ontology, error) {
	onto := &models.Ontology{}
	err := row.Scan(
		&onto.UUID,
		&onto.Name,
		&onto.SourceURL,
		&onto.ImageURL,
		&onto.Description,
		&onto.NodeCount,
		&onto.RelationshipCount,
		&onto.Score,
		&onto.IsPublic,
		&onto.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ontology: %w", err)
	}
	return onto, nil
}
