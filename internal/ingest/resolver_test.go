package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldata/cinesync/internal/model"
)

func TestResolver_NoMatch(t *testing.T) {
	st := newTestStore(t)
	r := NewResolver(st)

	id, err := r.Resolve(context.Background(), model.MatchKeys{
		TMDbID: int64Ptr(1),
		IMDbID: strPtr("tt0000001"),
		Title:  "Unknown",
	})
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestResolver_TMDbIDWins(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Record A owns tmdb id 1; record B owns the title.
	recA, err := st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
		model.RankingStub{TMDbID: 1, Title: "Original"}.Apply(r)
		return nil
	})
	require.NoError(t, err)
	recB, err := st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
		model.RankingStub{TMDbID: 2, Title: "Ambiguous"}.Apply(r)
		return nil
	})
	require.NoError(t, err)

	r := NewResolver(st)
	id, err := r.Resolve(ctx, model.MatchKeys{TMDbID: int64Ptr(1), Title: "Ambiguous"})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, recA.ID, *id)
	assert.NotEqual(t, recB.ID, *id)
}

func TestResolver_IMDbIDBeatsTitle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	recA, err := st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
		r.Title = "A"
		r.IMDbID = strPtr("tt0000007")
		return nil
	})
	require.NoError(t, err)
	_, err = st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
		r.Title = "B"
		return nil
	})
	require.NoError(t, err)

	r := NewResolver(st)
	id, err := r.Resolve(ctx, model.MatchKeys{IMDbID: strPtr("tt0000007"), Title: "B"})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, recA.ID, *id)
}

func TestResolver_TitleFallback(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	rec, err := st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
		model.RankingStub{TMDbID: 9, Title: "Nova"}.Apply(r)
		return nil
	})
	require.NoError(t, err)

	r := NewResolver(st)
	id, err := r.Resolve(ctx, model.MatchKeys{Title: "Nova"})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, rec.ID, *id)
}

func TestResolver_EmptyKeys(t *testing.T) {
	st := newTestStore(t)
	r := NewResolver(st)

	id, err := r.Resolve(context.Background(), model.MatchKeys{})
	require.NoError(t, err)
	assert.Nil(t, id)
}
