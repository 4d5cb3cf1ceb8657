package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ontoverse/marketplace/repositories"
	"go.uber.org/zap"
)

// TagRepository implements the repositories.TagRepository interface
type TagRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTagRepository creates a new tag repository
func NewTagRepository(db *DB, logger *zap.Logger) repositories.TagRepository {
	return &TagRepository{
		db:     db,
		logger: logger,
	}
}

// List returns all tag names, lowercase and ordered.
func (r *TagRepository) List(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT lower(name)
		FROM tags
		ORDER BY lower(name)
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	return tags, nil
}

// Add merges the given tags into the vocabulary and returns the full set.
func (r *TagRepository) Add(ctx context.Context, tags []string) ([]string, error) {
	normalized := normalizeTags(tags)
	if len(normalized) == 0 {
		return r.List(ctx)
	}

	for _, tag := range normalized {
		if _, err := r.db.ExecContext(ctx, `INSERT INTO tags (name) VALUES ($1) ON CONFLICT DO NOTHING`, tag); err != nil {
			return nil, fmt.Errorf("failed to merge tag: %w", err)
		}
	}

	r.logger.Debug("tags merged", zap.Int("count", len(normalized)))
	return r.List(ctx)
}

// normalizeTags trims, lowercases, and deduplicates tag names, dropping
// empties. Order of first occurrence is preserved.
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	return normalized
}
