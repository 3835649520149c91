package store

import (
	"context"

	"github.com/reeldata/cinesync/internal/model"
)

// CursorKey is the checkpoint key tracking the last fully ingested ranking
// page.
const CursorKey = "tmdb_last_page"

// Store defines the persistence interface for the ingestion pipeline and the
// read side of the analytics engine.
type Store interface {
	// Movies. Find* return (nil, nil) when no record matches.
	GetMovie(ctx context.Context, id int64) (*model.MovieRecord, error)
	FindMovieByTMDbID(ctx context.Context, tmdbID int64) (*model.MovieRecord, error)
	FindMovieByIMDbID(ctx context.Context, imdbID string) (*model.MovieRecord, error)
	FindMovieByTitle(ctx context.Context, title string) (*model.MovieRecord, error)

	// MergeMovie runs a read-modify-write cycle for one record in a single
	// transaction. When id is nil fn receives a zero record and the result
	// is inserted; otherwise fn receives the current stored state and the
	// result replaces it. Returns the stored record with its assigned ID.
	MergeMovie(ctx context.Context, id *int64, fn func(*model.MovieRecord) error) (*model.MovieRecord, error)

	ListMovies(ctx context.Context) ([]model.MovieRecord, error)
	CountMovies(ctx context.Context) (int, error)

	// Lookups. ResolveLookup returns the existing id for (category, name)
	// or inserts a new entry. Entries are permanent.
	ResolveLookup(ctx context.Context, category model.LookupCategory, name string) (int64, error)
	GetLookup(ctx context.Context, id int64) (*model.LookupEntry, error)
	ListLookups(ctx context.Context, category model.LookupCategory) ([]model.LookupEntry, error)

	// Checkpoints. GetCheckpoint returns "" when the key has never been set.
	GetCheckpoint(ctx context.Context, key string) (string, error)
	SetCheckpoint(ctx context.Context, key, value string) error

	// Ingestion run log.
	CreateIngestRun(ctx context.Context, run *model.IngestRun) error
	CompleteIngestRun(ctx context.Context, id string, stubs int) error
	FailIngestRun(ctx context.Context, id string, errMsg string) error
	ListIngestRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
