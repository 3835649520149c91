package analytics

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

func int64Ptr(n int64) *int64       { return &n }
func strPtr(s string) *string       { return &s }
func float64Ptr(f float64) *float64 { return &f }

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewEngine(st), st
}

type movieSeed struct {
	title      string
	budget     *int64
	totalGross *string
	rating     *float64
	genre      string
	distrib    string
}

func seedMovies(t *testing.T, st store.Store, seeds []movieSeed) {
	t.Helper()
	ctx := context.Background()
	for i, s := range seeds {
		tmdbID := int64(i + 1)
		var genreRef, distribRef *int64
		if s.genre != "" {
			id, err := st.ResolveLookup(ctx, model.CategoryGenre, s.genre)
			require.NoError(t, err)
			genreRef = &id
		}
		if s.distrib != "" {
			id, err := st.ResolveLookup(ctx, model.CategoryDistributor, s.distrib)
			require.NoError(t, err)
			distribRef = &id
		}
		_, err := st.MergeMovie(ctx, nil, func(r *model.MovieRecord) error {
			r.Title = s.title
			r.TMDbID = &tmdbID
			r.Budget = s.budget
			r.TotalGross = s.totalGross
			r.IMDbRating = s.rating
			r.GenreRef = genreRef
			r.DistributorRef = distribRef
			return nil
		})
		require.NoError(t, err)
	}
}

func TestCleanGross(t *testing.T) {
	tests := []struct {
		in   *string
		want *int64
	}{
		{strPtr("$5,000,000"), int64Ptr(5_000_000)},
		{strPtr("5000000"), int64Ptr(5_000_000)},
		{strPtr("$171,479,930"), int64Ptr(171_479_930)},
		{strPtr("N/A"), nil},
		{strPtr(""), nil},
		{strPtr("$-"), nil},
		{nil, nil},
	}
	for _, tt := range tests {
		got := CleanGross(tt.in)
		if tt.want == nil {
			assert.Nil(t, got)
		} else {
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		}
	}
}

func TestProfitability_SortsAndFilters(t *testing.T) {
	engine, st := newTestEngine(t)

	seedMovies(t, st, []movieSeed{
		{title: "Hit", budget: int64Ptr(2_000_000), totalGross: strPtr("$5,000,000")},
		{title: "Flop", budget: int64Ptr(10_000_000), totalGross: strPtr("$1,000,000")},
		{title: "No Budget", totalGross: strPtr("$9,000,000")},
		{title: "No Gross", budget: int64Ptr(1_000_000)},
		{title: "Bad Gross", budget: int64Ptr(1_000_000), totalGross: strPtr("N/A")},
	})

	entries, err := engine.Profitability(context.Background())
	require.NoError(t, err)

	// Only records with both a positive budget and a parseable gross
	// qualify; unparseable gross excludes the record rather than counting
	// it as zero.
	require.Len(t, entries, 2)
	assert.Equal(t, "Hit", entries[0].Title)
	assert.Equal(t, int64(3_000_000), entries[0].Profit)
	assert.Equal(t, "Flop", entries[1].Title)
	assert.Equal(t, int64(-9_000_000), entries[1].Profit)
}

func TestRatingVsProfit_RequiresRating(t *testing.T) {
	engine, st := newTestEngine(t)

	seedMovies(t, st, []movieSeed{
		{title: "Rated High", budget: int64Ptr(1), totalGross: strPtr("$10"), rating: float64Ptr(8.5)},
		{title: "Rated Low", budget: int64Ptr(1), totalGross: strPtr("$10"), rating: float64Ptr(3.1)},
		{title: "Unrated", budget: int64Ptr(1), totalGross: strPtr("$10")},
	})

	entries, err := engine.RatingVsProfit(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Rating ascending.
	assert.Equal(t, "Rated Low", entries[0].Title)
	assert.Equal(t, "Rated High", entries[1].Title)
}

func TestByDistributor_MeanProfit(t *testing.T) {
	engine, st := newTestEngine(t)

	seedMovies(t, st, []movieSeed{
		{title: "A", budget: int64Ptr(1_000_000), totalGross: strPtr("$3,000,000"), distrib: "A24"},
		{title: "B", budget: int64Ptr(1_000_000), totalGross: strPtr("$5,000,000"), distrib: "A24"},
		{title: "C", budget: int64Ptr(1_000_000), totalGross: strPtr("$2,000,000"), distrib: "Neon"},
		{title: "D", budget: int64Ptr(1_000_000), totalGross: strPtr("$9,000,000")},
	})

	stats, err := engine.ByDistributor(context.Background())
	require.NoError(t, err)

	// The record without a distributor is omitted from the rollup.
	require.Len(t, stats, 2)
	assert.Equal(t, "A24", stats[0].Name)
	assert.Equal(t, 2, stats[0].Movies)
	assert.Equal(t, 3_000_000.0, stats[0].MeanProfit)
	assert.Equal(t, "Neon", stats[1].Name)
	assert.Equal(t, 1_000_000.0, stats[1].MeanProfit)
}

func TestByGenre_SortsByMeanProfitDesc(t *testing.T) {
	engine, st := newTestEngine(t)

	seedMovies(t, st, []movieSeed{
		{title: "A", budget: int64Ptr(1_000_000), totalGross: strPtr("$2,000,000"), genre: "Drama"},
		{title: "B", budget: int64Ptr(1_000_000), totalGross: strPtr("$8,000,000"), genre: "Action"},
	})

	stats, err := engine.ByGenre(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Action", stats[0].Name)
	assert.Equal(t, "Drama", stats[1].Name)
}
