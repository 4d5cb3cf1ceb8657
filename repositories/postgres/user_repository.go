package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ontoverse/marketplace/models"
	"github.com/ontoverse/marketplace/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Ensure returns the user row for email, creating it when absent.
func (r *UserRepository) Ensure(ctx context.Context, email string) (*models.User, error) {
	query := `
		INSERT INTO users (uuid, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING uuid, email, created_at
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, uuid.New(), email).Scan(
		&user.UUID,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	r.logger.Debug("user ensured", zap.String("uuid", user.UUID.String()))
	return user, nil
}
