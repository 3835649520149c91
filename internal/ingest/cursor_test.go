package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reeldata/cinesync/internal/store"
)

func TestCursor_UnsetReadsZero(t *testing.T) {
	st := newTestStore(t)
	c := NewCursor(st)

	page, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, page)
}

func TestCursor_AdvanceThenRead(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	c := NewCursor(st)

	require.NoError(t, c.Advance(ctx, 1))
	page, err := c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, page)

	require.NoError(t, c.Advance(ctx, 2))
	page, err = c.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, page)
}

func TestCursor_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := store.NewSQLite(dir + "/cursor.db")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, NewCursor(st).Advance(ctx, 5))
	require.NoError(t, st.Close())

	st2, err := store.NewSQLite(dir + "/cursor.db")
	require.NoError(t, err)
	defer st2.Close() //nolint:errcheck
	require.NoError(t, st2.Migrate(ctx))

	page, err := NewCursor(st2).Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, page)
}

func TestCursor_CorruptCheckpoint(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCheckpoint(ctx, store.CursorKey, "not-a-number"))

	_, err := NewCursor(st).Read(ctx)
	assert.Error(t, err)
}
