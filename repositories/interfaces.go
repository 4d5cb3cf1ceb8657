package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/ontoverse/marketplace/models"
)

// OntologyRepository handles listing data operations. Mutating operations
// take the caller's email and enforce grant-based authorization in the query
// itself, so a caller can never touch rows they hold no grant on.
type OntologyRepository interface {
	// Search returns a page of listings matching the term in name or
	// description, newest first. An empty term matches everything.
	Search(ctx context.Context, term string, limit, offset int) (*models.SearchPage, error)

	// Add inserts the given listings, skipping any whose source_url
	// already exists, and records a created grant for the caller.
	// Returns the listings actually inserted.
	Add(ctx context.Context, email string, ontologies []*models.Ontology) ([]*models.Ontology, error)

	// Delete removes the listings the caller holds a delete-capable grant
	// on and returns the number of rows removed.
	Delete(ctx context.Context, email string, ids []uuid.UUID) (int64, error)

	// Update patches a listing the caller holds an edit-capable grant on.
	Update(ctx context.Context, email string, id uuid.UUID, update *models.UpdateOntology) (*models.Ontology, error)

	// Like records the caller's like once per listing and returns the
	// listing's like count.
	Like(ctx context.Context, email string, id uuid.UUID) (int64, error)

	// EditableIDs returns the listing ids the caller may edit.
	EditableIDs(ctx context.Context, email string) ([]uuid.UUID, error)
}

// TagRepository handles the tag vocabulary.
type TagRepository interface {
	// List returns all tag names, lowercase and ordered.
	List(ctx context.Context) ([]string, error)

	// Add merges the given tags (trimmed, lowercased, deduplicated) and
	// returns the full vocabulary afterwards.
	Add(ctx context.Context, tags []string) ([]string, error)
}

// UserRepository handles marketplace accounts.
type UserRepository interface {
	// Ensure returns the user for the email, creating the row when absent.
	Ensure(ctx context.Context, email string) (*models.User, error)
}
