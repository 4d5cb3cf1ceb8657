package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ontoverse/marketplace/config"
	"github.com/ontoverse/marketplace/identity"
	"github.com/ontoverse/marketplace/models"
	"github.com/ontoverse/marketplace/repositories"
	"github.com/ontoverse/marketplace/utils"
)

// MockOntologyRepository is a testify mock for repositories.OntologyRepository.
type MockOntologyRepository struct {
	mock.Mock
}

func (m *MockOntologyRepository) Search(ctx context.Context, term string, limit, offset int) (*models.SearchPage, error) {
	args := m.Called(ctx, term, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchPage), args.Error(1)
}

func (m *MockOntologyRepository) Add(ctx context.Context, email string, ontologies []*models.Ontology) ([]*models.Ontology, error) {
	args := m.Called(ctx, email, ontologies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ontology), args.Error(1)
}

func (m *MockOntologyRepository) Delete(ctx context.Context, email string, ids []uuid.UUID) (int64, error) {
	args := m.Called(ctx, email, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOntologyRepository) Update(ctx context.Context, email string, id uuid.UUID, update *models.UpdateOntology) (*models.Ontology, error) {
	args := m.Called(ctx, email, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ontology), args.Error(1)
}

func (m *MockOntologyRepository) Like(ctx context.Context, email string, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, email, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOntologyRepository) EditableIDs(ctx context.Context, email string) ([]uuid.UUID, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

type rejectVerifier struct{}

func (rejectVerifier) Verify(ctx context.Context, authorizationHeader string) (identity.Identity, error) {
	return identity.Identity{}, identity.ErrMissingCredential
}

func devConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			BypassEnabled:      true,
			BypassDefaultEmail: "dev@example.com",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func newHandler(repo *MockOntologyRepository) http.Handler {
	return New(devConfig(), rejectVerifier{}, repo, zap.NewNop()).Handler()
}

func do(handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.Response {
	t.Helper()
	var body utils.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleAdd(t *testing.T) {
	repo := new(MockOntologyRepository)
	// One of the two already existed, so the repository reports one insert.
	repo.On("Add", mock.Anything, "dev@example.com", mock.MatchedBy(func(ontos []*models.Ontology) bool {
		return len(ontos) == 2 && ontos[0].UUID != uuid.Nil && !ontos[0].CreatedAt.IsZero()
	})).Return([]*models.Ontology{{UUID: uuid.New(), Name: "genes"}}, nil)

	body := `[
		{"name": "genes", "source_url": "https://onto.example/genes"},
		{"name": "cells", "source_url": "https://onto.example/cells"}
	]`
	rec := do(newHandler(repo), http.MethodPost, "/", body)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully added 1 ontologies. Skipped 1 ontologies that already existed.", resp.Message)
	repo.AssertExpectations(t)
}

func TestHandleAdd_InvalidBody(t *testing.T) {
	repo := new(MockOntologyRepository)
	handler := newHandler(repo)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not-json"},
		{name: "not an array", body: `{"name":"genes"}`},
		{name: "empty array", body: `[]`},
		{name: "missing name", body: `[{"source_url":"https://onto.example/genes"}]`},
		{name: "bad url", body: `[{"name":"genes","source_url":"not a url"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(handler, http.MethodPost, "/", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleDelete(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Delete", mock.Anything, "dev@example.com", []uuid.UUID{id}).
		Return(int64(1), nil)

	rec := do(newHandler(repo), http.MethodDelete, "/", `{"ontology_ids":["`+id.String()+`"]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Successfully deleted 1 ontologies", resp.Message)
}

func TestHandleDelete_NothingMatched(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Delete", mock.Anything, "dev@example.com", []uuid.UUID{id}).
		Return(int64(0), nil)

	rec := do(newHandler(repo), http.MethodDelete, "/", `{"ontology_ids":["`+id.String()+`"]}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "No ontologies found with the provided IDs for the given user", resp.Message)
}

func TestHandleDelete_NoIDs(t *testing.T) {
	repo := new(MockOntologyRepository)

	rec := do(newHandler(repo), http.MethodDelete, "/", `{"ontology_ids":[]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleUpdate(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	name := "renamed"
	repo.On("Update", mock.Anything, "dev@example.com", id, mock.MatchedBy(func(u *models.UpdateOntology) bool {
		return u.Name != nil && *u.Name == name
	})).Return(&models.Ontology{UUID: id, Name: name}, nil)

	rec := do(newHandler(repo), http.MethodPut, "/"+id.String(), `{"name":"renamed"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Ontology updated successfully", resp.Message)
}

func TestHandleUpdate_NotAuthorized(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Update", mock.Anything, "dev@example.com", id, mock.Anything).
		Return(nil, repositories.ErrNotAuthorized)

	rec := do(newHandler(repo), http.MethodPut, "/"+id.String(), `{"name":"renamed"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleUpdate_NotFound(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Update", mock.Anything, "dev@example.com", id, mock.Anything).
		Return(nil, repositories.ErrNotFound)

	rec := do(newHandler(repo), http.MethodPut, "/"+id.String(), `{"name":"renamed"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleUpdate_BadID(t *testing.T) {
	repo := new(MockOntologyRepository)

	rec := do(newHandler(repo), http.MethodPut, "/not-a-uuid", `{"name":"renamed"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleLike(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Like", mock.Anything, "dev@example.com", id).
		Return(int64(5), nil)

	rec := do(newHandler(repo), http.MethodPost, "/"+id.String()+"/like", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Ontology liked", resp.Message)
}

func TestHandleLike_NotFound(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Like", mock.Anything, "dev@example.com", id).
		Return(int64(0), repositories.ErrNotFound)

	rec := do(newHandler(repo), http.MethodPost, "/"+id.String()+"/like", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHeaderOverridesCallerEmail(t *testing.T) {
	repo := new(MockOntologyRepository)
	id := uuid.New()
	repo.On("Like", mock.Anything, "alice@example.com", id).
		Return(int64(1), nil)

	r := httptest.NewRequest(http.MethodPost, "/"+id.String()+"/like", nil)
	r.Header.Set("X-Dev-Email", "alice@example.com")
	rec := httptest.NewRecorder()
	newHandler(repo).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}
