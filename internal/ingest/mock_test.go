package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reeldata/cinesync/internal/source"
	"github.com/reeldata/cinesync/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func int64Ptr(n int64) *int64       { return &n }
func strPtr(s string) *string       { return &s }
func float64Ptr(f float64) *float64 { return &f }

// --- Ranking Mock ---

type mockRankingSource struct {
	mock.Mock
}

func (m *mockRankingSource) FetchPage(ctx context.Context, page int) ([]source.Stub, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]source.Stub), args.Error(1)
}

// --- Detail Mock ---

type mockDetailSource struct {
	mock.Mock
}

func (m *mockDetailSource) FetchDetail(ctx context.Context, tmdbID int64) (*source.Detail, error) {
	args := m.Called(ctx, tmdbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*source.Detail), args.Error(1)
}

// --- Metadata Mock ---

type mockMetadataSource struct {
	mock.Mock
}

func (m *mockMetadataSource) FetchMetadata(ctx context.Context, imdbID string) (*source.Metadata, error) {
	args := m.Called(ctx, imdbID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*source.Metadata), args.Error(1)
}

// --- Box Office Mock ---

type mockBoxOfficeSource struct {
	mock.Mock
}

func (m *mockBoxOfficeSource) FetchTable(ctx context.Context) ([]source.BoxOfficeRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]source.BoxOfficeRow), args.Error(1)
}
