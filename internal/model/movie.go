package model

import (
	"strconv"
	"time"
)

// LookupCategory names a class of normalized string attributes.
type LookupCategory string

const (
	CategoryGenre       LookupCategory = "genre"
	CategoryDistributor LookupCategory = "distributor"
)

// LookupEntry is one row of the lookup table. Entries are created lazily on
// first sighting of a (category, name) pair and are never deleted or renamed.
type LookupEntry struct {
	ID       int64          `json:"id"`
	Category LookupCategory `json:"category"`
	Name     string         `json:"name"`
}

// MovieRecord is the canonical, merged record for one movie. Optional fields
// are pointers; nil means the field has never been supplied by any source.
//
// The box-office gross fields keep the source formatting ("$1,234,567");
// numeric cleanup is a read-time concern of the analytics engine.
type MovieRecord struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseYear *int   `json:"release_year,omitempty"`

	// External identities. Each is unique across records when present.
	TMDbID *int64  `json:"tmdb_id,omitempty"`
	IMDbID *string `json:"imdb_id,omitempty"`

	// Normalized category refs into the lookup table.
	GenreRef       *int64 `json:"genre_ref,omitempty"`
	DistributorRef *int64 `json:"distributor_ref,omitempty"`

	// Ranking source metrics.
	Popularity  *float64 `json:"popularity,omitempty"`
	VoteCount   *int64   `json:"vote_count,omitempty"`
	AverageVote *float64 `json:"average_vote,omitempty"`

	// Detail source.
	Budget *int64 `json:"budget,omitempty"`

	// Secondary metadata source.
	IMDbRating *float64 `json:"imdb_rating,omitempty"`
	IMDbVotes  *int64   `json:"imdb_votes,omitempty"`

	// Box-office facts, source-formatted.
	OpeningGross *string `json:"opening_gross,omitempty"`
	Theaters     *string `json:"theaters,omitempty"`
	TotalGross   *string `json:"total_gross,omitempty"`
}

// MatchKeys carries the identity fields a partial record can be matched on,
// in resolution precedence order: TMDb id, then IMDb id, then exact title.
type MatchKeys struct {
	TMDbID *int64
	IMDbID *string
	Title  string
}

// Partial is one variant of the tagged union of per-source partial records.
// Apply projects the variant's present fields onto a MovieRecord, leaving
// every other field untouched; that projection is what makes the merge
// null-coalescing.
type Partial interface {
	// Source names the originating source, for logging.
	Source() string

	// MatchKeys returns the identity fields this variant carries.
	MatchKeys() MatchKeys

	// Apply copies the variant's present (non-nil) fields onto rec.
	Apply(rec *MovieRecord)
}

// RankingStub is the partial record from one row of the paginated ranking
// source. Title and TMDbID are always present; the metrics are carried as
// pointers so a degraded payload can still merge.
type RankingStub struct {
	TMDbID      int64
	Title       string
	ReleaseDate string
	Popularity  *float64
	VoteCount   *int64
	AverageVote *float64
}

func (s RankingStub) Source() string { return "tmdb" }

func (s RankingStub) MatchKeys() MatchKeys {
	id := s.TMDbID
	return MatchKeys{TMDbID: &id, Title: s.Title}
}

func (s RankingStub) Apply(rec *MovieRecord) {
	id := s.TMDbID
	rec.TMDbID = &id
	rec.Title = s.Title
	if y := ReleaseYearFromDate(s.ReleaseDate); y != nil {
		rec.ReleaseYear = y
	}
	if s.Popularity != nil {
		rec.Popularity = s.Popularity
	}
	if s.VoteCount != nil {
		rec.VoteCount = s.VoteCount
	}
	if s.AverageVote != nil {
		rec.AverageVote = s.AverageVote
	}
}

// DetailFields is the supplement from the per-title detail endpoint: the
// cross-reference IMDb id and the production budget.
type DetailFields struct {
	TMDbID int64
	IMDbID *string
	Budget *int64
}

func (d DetailFields) Source() string { return "tmdb_detail" }

func (d DetailFields) MatchKeys() MatchKeys {
	id := d.TMDbID
	return MatchKeys{TMDbID: &id, IMDbID: d.IMDbID}
}

func (d DetailFields) Apply(rec *MovieRecord) {
	if d.IMDbID != nil {
		rec.IMDbID = d.IMDbID
	}
	if d.Budget != nil {
		rec.Budget = d.Budget
	}
}

// MetadataFields is the partial record from the secondary metadata source,
// keyed by IMDb id. Genre carries the raw source string; the merge engine
// resolves it to GenreRef before the record is written and only the ref is
// ever persisted.
type MetadataFields struct {
	IMDbID     string
	Genre      *string
	IMDbRating *float64
	IMDbVotes  *int64

	// GenreRef is populated by the merge engine from Genre.
	GenreRef *int64
}

func (m MetadataFields) Source() string { return "omdb" }

func (m MetadataFields) MatchKeys() MatchKeys {
	id := m.IMDbID
	return MatchKeys{IMDbID: &id}
}

func (m MetadataFields) Apply(rec *MovieRecord) {
	id := m.IMDbID
	rec.IMDbID = &id
	if m.GenreRef != nil {
		rec.GenreRef = m.GenreRef
	}
	if m.IMDbRating != nil {
		rec.IMDbRating = m.IMDbRating
	}
	if m.IMDbVotes != nil {
		rec.IMDbVotes = m.IMDbVotes
	}
}

// BoxOfficeFacts is the partial record from the box-office table snapshot.
// It carries no numeric identity at all; matching back to a canonical record
// is by exact title only. Distributor carries the raw source string and is
// resolved to DistributorRef by the merge engine before the write.
type BoxOfficeFacts struct {
	Title        string
	OpeningGross *string
	Theaters     *string
	TotalGross   *string
	Distributor  *string

	// DistributorRef is populated by the merge engine from Distributor.
	DistributorRef *int64
}

func (b BoxOfficeFacts) Source() string { return "boxoffice" }

func (b BoxOfficeFacts) MatchKeys() MatchKeys {
	return MatchKeys{Title: b.Title}
}

func (b BoxOfficeFacts) Apply(rec *MovieRecord) {
	if rec.Title == "" {
		rec.Title = b.Title
	}
	if b.OpeningGross != nil {
		rec.OpeningGross = b.OpeningGross
	}
	if b.Theaters != nil {
		rec.Theaters = b.Theaters
	}
	if b.TotalGross != nil {
		rec.TotalGross = b.TotalGross
	}
	if b.DistributorRef != nil {
		rec.DistributorRef = b.DistributorRef
	}
}

// ReleaseYearFromDate derives a release year from a source date string
// ("2025-03-01"). Returns nil when the string is absent, shorter than four
// characters, or not numeric.
func ReleaseYearFromDate(date string) *int {
	if len(date) < 4 {
		return nil
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return nil
	}
	return &year
}

// RunStatus is the state of one ingestion run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// IngestRun is one row of the ingestion run log.
type IngestRun struct {
	ID          string     `json:"id"`
	Page        int        `json:"page"`
	Status      RunStatus  `json:"status"`
	Stubs       int        `json:"stubs"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
