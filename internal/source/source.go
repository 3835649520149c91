// Package source holds the external data source adapters: the paginated
// TMDb-style ranking API, its per-title detail endpoint, the OMDb-style
// metadata API, and the box-office table snapshot.
//
// Adapters normalize transport-level quirks ("N/A" markers, thousands
// separators in vote counts, rows with missing columns) so the ingestion
// core only ever sees typed, optional fields.
package source

import "context"

// Stub is one row of a ranking page: the minimal partial record obtained
// before detail enrichment.
type Stub struct {
	TMDbID      int64
	Title       string
	ReleaseDate string
	Popularity  float64
	VoteCount   int64
	AverageVote float64
}

// Detail carries the supplementary fields from the per-title detail
// endpoint. Nil fields were absent from the payload.
type Detail struct {
	IMDbID *string
	Budget *int64
}

// Metadata carries rating/vote/genre data from the secondary metadata
// source. Nil fields were absent or unparseable.
type Metadata struct {
	Genre      *string
	IMDbRating *float64
	IMDbVotes  *int64
}

// BoxOfficeRow is one row of the box-office table snapshot. All fields are
// present; the adapter drops incomplete rows before they reach the core.
type BoxOfficeRow struct {
	Title        string
	OpeningGross string
	Theaters     string
	TotalGross   string
	Distributor  string
}

// RankingSource returns one page of ranking stubs. An empty page means "no
// more data right now", not an error.
type RankingSource interface {
	FetchPage(ctx context.Context, page int) ([]Stub, error)
}

// DetailSource returns supplementary fields for one ranking-source id.
type DetailSource interface {
	FetchDetail(ctx context.Context, tmdbID int64) (*Detail, error)
}

// MetadataSource returns rating/vote/genre data for one IMDb id.
// (nil, nil) means the source has no data for that id.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, imdbID string) (*Metadata, error)
}

// BoxOfficeSource returns the full box-office table. Matching rows back to
// canonical records is by title string only.
type BoxOfficeSource interface {
	FetchTable(ctx context.Context) ([]BoxOfficeRow, error)
}
