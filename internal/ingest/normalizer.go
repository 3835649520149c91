package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

// Normalizer maps free-text category strings (genre, distributor) to stable
// lookup ids, creating the mapping on first sight. Resolution is idempotent:
// the same (category, name) pair always yields the same id.
type Normalizer struct {
	store store.Store
}

// NewNormalizer creates a Normalizer backed by the given store.
func NewNormalizer(st store.Store) *Normalizer {
	return &Normalizer{store: st}
}

// Resolve returns the lookup id for (category, name), inserting a new entry
// if none exists. A nil or whitespace-only name yields nil without creating
// an entry.
func (n *Normalizer) Resolve(ctx context.Context, category model.LookupCategory, name *string) (*int64, error) {
	if name == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" {
		return nil, nil
	}
	id, err := n.store.ResolveLookup(ctx, category, trimmed)
	if err != nil {
		return nil, eris.Wrapf(err, "normalizer: resolve %s %q", category, trimmed)
	}
	return &id, nil
}
