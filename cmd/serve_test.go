package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

func newRouterTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRouter_Health(t *testing.T) {
	router := newRouter(newRouterTestStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestRouter_Movies(t *testing.T) {
	st := newRouterTestStore(t)
	rec, err := st.MergeMovie(context.Background(), nil, func(r *model.MovieRecord) error {
		model.RankingStub{TMDbID: 603, Title: "The Matrix"}.Apply(r)
		return nil
	})
	require.NoError(t, err)

	router := newRouter(st)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var movies []model.MovieRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movies))
	require.Len(t, movies, 1)
	assert.Equal(t, "The Matrix", movies[0].Title)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies/"+strconv.FormatInt(rec.ID, 10), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MovieNotFound(t *testing.T) {
	router := newRouter(newRouterTestStore(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/movies/not-a-number", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Reports(t *testing.T) {
	router := newRouter(newRouterTestStore(t))

	for _, path := range []string{
		"/reports/profitability",
		"/reports/rating",
		"/reports/distributors",
		"/reports/genres",
		"/runs",
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}
}
