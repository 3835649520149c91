package ingest

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/reeldata/cinesync/internal/store"
)

// Cursor tracks the last fully ingested ranking page in the store's
// checkpoint table. It is read once at the start of a run and advanced once,
// only after every record of the page has been merged; a crash mid-page
// leaves it untouched so the page is retried in full.
type Cursor struct {
	store store.Store
	key   string
}

// NewCursor creates a Cursor persisted under the default checkpoint key.
func NewCursor(st store.Store) *Cursor {
	return &Cursor{store: st, key: store.CursorKey}
}

// Read returns the last successfully completed page number, 0 if the cursor
// has never been set.
func (c *Cursor) Read(ctx context.Context) (int, error) {
	raw, err := c.store.GetCheckpoint(ctx, c.key)
	if err != nil {
		return 0, eris.Wrap(err, "cursor: read")
	}
	if raw == "" {
		return 0, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "cursor: parse checkpoint %q", raw)
	}
	return page, nil
}

// Advance persists page as the last completed page, overwriting any prior
// value.
func (c *Cursor) Advance(ctx context.Context, page int) error {
	if err := c.store.SetCheckpoint(ctx, c.key, strconv.Itoa(page)); err != nil {
		return eris.Wrapf(err, "cursor: advance to %d", page)
	}
	return nil
}
