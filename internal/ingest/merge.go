package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

// Merger combines partial records from any source into the canonical store.
//
// The merge is null-coalescing: a partial record's absent fields never
// overwrite values captured from earlier sightings, which is what lets three
// schema-incompatible sources accumulate into one complete record across
// independent, out-of-order runs. Category strings are resolved through the
// Normalizer before the write; the store only ever sees lookup refs.
type Merger struct {
	store    store.Store
	resolver *Resolver
	lookups  *Normalizer
}

// NewMerger creates a Merger over the given store.
func NewMerger(st store.Store) *Merger {
	return &Merger{
		store:    st,
		resolver: NewResolver(st),
		lookups:  NewNormalizer(st),
	}
}

// Merge resolves the partial record's identity and applies it to the matching
// canonical record, creating one if no record matches. The read-modify-write
// runs in a single store transaction. Returns the stored record.
func (m *Merger) Merge(ctx context.Context, p model.Partial) (*model.MovieRecord, error) {
	p, err := m.resolveRefs(ctx, p)
	if err != nil {
		return nil, err
	}

	id, err := m.resolver.Resolve(ctx, p.MatchKeys())
	if err != nil {
		return nil, eris.Wrapf(err, "merge: resolve identity (%s)", p.Source())
	}

	rec, err := m.store.MergeMovie(ctx, id, func(rec *model.MovieRecord) error {
		p.Apply(rec)
		return nil
	})
	if err != nil {
		// A uniqueness violation here means the resolver failed to find a
		// record that exists; surface it, never swallow it.
		return nil, eris.Wrapf(err, "merge: upsert (%s)", p.Source())
	}

	zap.L().Debug("merged partial record",
		zap.String("source", p.Source()),
		zap.Int64("movie_id", rec.ID),
		zap.String("title", rec.Title),
		zap.Bool("created", id == nil),
	)
	return rec, nil
}

// resolveRefs normalizes any raw category strings the variant carries into
// lookup refs, returning the variant with refs populated.
func (m *Merger) resolveRefs(ctx context.Context, p model.Partial) (model.Partial, error) {
	switch v := p.(type) {
	case model.MetadataFields:
		ref, err := m.lookups.Resolve(ctx, model.CategoryGenre, v.Genre)
		if err != nil {
			return nil, eris.Wrap(err, "merge: resolve genre")
		}
		v.GenreRef = ref
		return v, nil
	case model.BoxOfficeFacts:
		ref, err := m.lookups.Resolve(ctx, model.CategoryDistributor, v.Distributor)
		if err != nil {
			return nil, eris.Wrap(err, "merge: resolve distributor")
		}
		v.DistributorRef = ref
		return v, nil
	default:
		return p, nil
	}
}
