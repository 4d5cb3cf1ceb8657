package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ontoverse/marketplace/models"
	"github.com/ontoverse/marketplace/repositories"
)

// newMockDB wraps a sqlmock connection in the pool type the repositories use.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &DB{DB: conn, logger: zap.NewNop()}, mock
}

var ontologyRowColumns = []string{
	"uuid", "name", "source_url", "image_url", "description",
	"node_count", "relationship_count", "score", "is_public", "created_at",
}

func addOntologyRow(rows *sqlmock.Rows, id uuid.UUID, name string) *sqlmock.Rows {
	return rows.AddRow(
		id.String(), name, "https://onto.example/"+name, nil, "an ontology",
		int64(10), int64(20), 0.5, true, time.Now().UTC(),
	)
}

func TestOntologySearch(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	idA := uuid.New()
	idB := uuid.New()
	rows := sqlmock.NewRows(ontologyRowColumns)
	addOntologyRow(rows, idA, "genes")
	addOntologyRow(rows, idB, "genealogy")

	mock.ExpectQuery(regexp.QuoteMeta("FROM ontologies")).
		WithArgs("gene", 0, 25).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*)")).
		WithArgs("gene").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	page, err := repo.Search(context.Background(), "gene", 25, 0)
	require.NoError(t, err)

	assert.Len(t, page.Results, 2)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, int64(42), page.Total)
	assert.Equal(t, 25, page.Limit)
	assert.Equal(t, idA, page.Results[0].UUID)
	assert.Equal(t, "genes", page.Results[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologySearch_ClampsPagination(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	// Out-of-range limit and offset are clamped before hitting the database.
	mock.ExpectQuery(regexp.QuoteMeta("FROM ontologies")).
		WithArgs("", 0, maxSearchLimit).
		WillReturnRows(sqlmock.NewRows(ontologyRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*)")).
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))

	page, err := repo.Search(context.Background(), "", 5000, -3)
	require.NoError(t, err)

	assert.Empty(t, page.Results)
	assert.Equal(t, 0, page.Offset)
	assert.Equal(t, maxSearchLimit, page.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyAdd_SkipsDuplicates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	userUUID := uuid.New()
	fresh := (&models.NewOntology{Name: "fresh", SourceURL: "https://onto.example/fresh", IsPublic: true}).Ontology(time.Now())
	dup := (&models.NewOntology{Name: "dup", SourceURL: "https://onto.example/dup", IsPublic: true}).Ontology(time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow(userUUID.String()))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ontologies")).
		WithArgs(fresh.UUID.String(), fresh.Name, fresh.SourceURL, nil, nil, nil, nil, nil, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow(fresh.UUID.String()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ontology_grants")).
		WithArgs(userUUID.String(), fresh.UUID.String(), models.GrantCreated).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The duplicate's ON CONFLICT DO NOTHING returns no row.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO ontologies")).
		WithArgs(dup.UUID.String(), dup.Name, dup.SourceURL, nil, nil, nil, nil, nil, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}))

	mock.ExpectCommit()

	created, err := repo.Add(context.Background(), "alice@example.com", []*models.Ontology{fresh, dup})
	require.NoError(t, err)

	require.Len(t, created, 1)
	assert.Equal(t, "fresh", created[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyDelete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ontologies o")).
		WithArgs("alice@example.com", pq.Array(deleteRoles), pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.Delete(context.Background(), "alice@example.com", ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyDelete_NoIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	deleted, err := repo.Delete(context.Background(), "alice@example.com", nil)
	require.NoError(t, err)
	assert.Zero(t, deleted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyUpdate_NotAuthorized(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("mallory@example.com", id.String(), pq.Array(editRoles)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	name := "renamed"
	_, err := repo.Update(context.Background(), "mallory@example.com", id, &models.UpdateOntology{Name: &name})
	assert.ErrorIs(t, err, repositories.ErrNotAuthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyUpdate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	id := uuid.New()
	name := "renamed"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("alice@example.com", id.String(), pq.Array(editRoles)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	rows := sqlmock.NewRows(ontologyRowColumns)
	addOntologyRow(rows, id, name)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE ontologies SET")).
		WithArgs(id.String(), &name, nil, nil, nil, nil, nil, nil, nil).
		WillReturnRows(rows)
	mock.ExpectCommit()

	onto, err := repo.Update(context.Background(), "alice@example.com", id, &models.UpdateOntology{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, onto.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyUpdate_ReplacesTags(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("alice@example.com", id.String(), pq.Array(editRoles)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	rows := sqlmock.NewRows(ontologyRowColumns)
	addOntologyRow(rows, id, "genes")
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE ontologies SET")).
		WillReturnRows(rows)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ontology_tags")).
		WithArgs(id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Tags arrive mixed-case with a duplicate; only the normalized pair lands.
	for _, tag := range []string{"biology", "genomics"} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tags")).
			WithArgs(tag).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ontology_tags")).
			WithArgs(id.String(), tag).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	_, err := repo.Update(context.Background(), "alice@example.com", id, &models.UpdateOntology{
		Tags: []string{" Biology ", "genomics", "BIOLOGY"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyLike(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	id := uuid.New()
	userUUID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(sqlmock.AnyArg(), "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"uuid"}).AddRow(userUUID.String()))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ontology_likes")).
		WithArgs(userUUID.String(), id.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM ontology_likes")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))
	mock.ExpectCommit()

	likes, err := repo.Like(context.Background(), "alice@example.com", id)
	require.NoError(t, err)
	assert.Equal(t, int64(7), likes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyLike_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err := repo.Like(context.Background(), "alice@example.com", id)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOntologyEditableIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOntologyRepository(db, zap.NewNop())

	idA := uuid.New()
	idB := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM ontology_grants g")).
		WithArgs("alice@example.com", pq.Array(editRoles)).
		WillReturnRows(sqlmock.NewRows([]string{"ontology_uuid"}).
			AddRow(idA.String()).
			AddRow(idB.String()))

	ids, err := repo.EditableIDs(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{idA, idB}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
