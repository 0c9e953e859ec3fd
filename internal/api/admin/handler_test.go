package admin_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/api"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/api/admin"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/database"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/idnorm"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/seed"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/store"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/testhelpers"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/vocab"
)

const (
	prefix  = "https://kg.ebrains.eu/api/instances/"
	graceID = "8b1f4e2c-73a0-4f0e-8f55-0d3a9e6c2b02"
)

type fakeCache struct {
	cleared int
	err     error
}

func (f *fakeCache) Clear(context.Context) error {
	f.cleared++
	return f.err
}

func setupServer(t *testing.T, cache admin.Clearer) (*httptest.Server, *store.Store) {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	ctx := context.Background()
	ids := idnorm.New(prefix)

	require.NoError(t, database.Migrate(ctx, db))
	s := store.New(db, ids, vocab.Default())
	require.NoError(t, seed.Seed(ctx, s, ids))

	mux := http.NewServeMux()
	admin.RegisterRoutes(mux, s, ids, cache)

	srv := httptest.NewServer(api.Chain(mux, api.RequestID()))
	t.Cleanup(srv.Close)
	return srv, s
}

func post(t *testing.T, url string) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", http.NoBody)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestReset(t *testing.T) {
	cache := &fakeCache{}
	srv, s := setupServer(t, cache)
	ctx := context.Background()

	require.NoError(t, s.DeleteInstance(ctx, prefix+graceID))
	_, err := s.GetInstance(ctx, prefix+graceID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/_kgeditor/reset"))
	assert.Equal(t, 1, cache.cleared)

	grace, err := s.GetInstance(ctx, prefix+graceID)
	require.NoError(t, err)
	assert.Equal(t, prefix+graceID, grace.ID())
}

func TestReset_WithoutCache(t *testing.T) {
	srv, _ := setupServer(t, nil)
	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/_kgeditor/reset"))
}

func TestReset_CacheFailure(t *testing.T) {
	srv, _ := setupServer(t, &fakeCache{err: errors.New("redis down")})
	assert.Equal(t, http.StatusInternalServerError, post(t, srv.URL+"/_kgeditor/reset"))
}

func TestSeedIsIdempotent(t *testing.T) {
	srv, s := setupServer(t, nil)
	ctx := context.Background()

	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/_kgeditor/seed"))
	assert.Equal(t, http.StatusOK, post(t, srv.URL+"/_kgeditor/seed"))

	page, err := s.Search(ctx, domain.SearchQuery{Type: "https://openminds.ebrains.eu/core/Person"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}
