package ingest

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

// Resolver decides which canonical record an incoming partial record refers
// to. Matching precedence, first match wins:
//
//  1. exact TMDb id
//  2. exact IMDb id
//  3. exact, case-sensitive title
//
// External ids are authoritative when available; title is a weak fallback for
// the box-office source, which carries no numeric identity at all. Two
// different movies sharing a title is an accepted limitation.
type Resolver struct {
	store store.Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(st store.Store) *Resolver {
	return &Resolver{store: st}
}

// Resolve returns the internal id of the matching canonical record, or nil
// when no record matches any of the supplied keys.
func (r *Resolver) Resolve(ctx context.Context, keys model.MatchKeys) (*int64, error) {
	if keys.TMDbID != nil {
		rec, err := r.store.FindMovieByTMDbID(ctx, *keys.TMDbID)
		if err != nil {
			return nil, eris.Wrapf(err, "resolver: by tmdb id %d", *keys.TMDbID)
		}
		if rec != nil {
			return &rec.ID, nil
		}
	}
	if keys.IMDbID != nil && *keys.IMDbID != "" {
		rec, err := r.store.FindMovieByIMDbID(ctx, *keys.IMDbID)
		if err != nil {
			return nil, eris.Wrapf(err, "resolver: by imdb id %s", *keys.IMDbID)
		}
		if rec != nil {
			return &rec.ID, nil
		}
	}
	if keys.Title != "" {
		rec, err := r.store.FindMovieByTitle(ctx, keys.Title)
		if err != nil {
			return nil, eris.Wrapf(err, "resolver: by title %q", keys.Title)
		}
		if rec != nil {
			return &rec.ID, nil
		}
	}
	return nil, nil
}
