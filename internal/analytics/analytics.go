// Package analytics derives profitability and rating aggregates from the
// accumulated canonical records. It is strictly read-side: numeric cleanup of
// the source-formatted gross strings happens here, at read time, and nothing
// is ever written back to the store.
package analytics

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

// ProfitEntry is one qualifying record: positive budget and a parseable
// cumulative gross.
type ProfitEntry struct {
	Title       string   `json:"title"`
	ReleaseYear *int     `json:"release_year,omitempty"`
	Budget      int64    `json:"budget"`
	Gross       int64    `json:"gross"`
	Profit      int64    `json:"profit"`
	IMDbRating  *float64 `json:"imdb_rating,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Distributor string   `json:"distributor,omitempty"`
}

// GroupStat is a per-genre or per-distributor rollup.
type GroupStat struct {
	Name       string  `json:"name"`
	Movies     int     `json:"movies"`
	MeanProfit float64 `json:"mean_profit"`
}

// Engine computes the reports. It holds only a store handle and never
// mutates the store.
type Engine struct {
	store store.Store
}

// NewEngine creates an analytics engine over the given store.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Profitability returns all qualifying records sorted by profit, most
// profitable first.
func (e *Engine) Profitability(ctx context.Context) ([]ProfitEntry, error) {
	entries, err := e.qualifying(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Profit > entries[j].Profit
	})
	return entries, nil
}

// RatingVsProfit returns the qualifying records that also carry an IMDb
// rating, sorted by rating ascending.
func (e *Engine) RatingVsProfit(ctx context.Context) ([]ProfitEntry, error) {
	entries, err := e.qualifying(ctx)
	if err != nil {
		return nil, err
	}
	rated := entries[:0]
	for _, en := range entries {
		if en.IMDbRating != nil {
			rated = append(rated, en)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		return *rated[i].IMDbRating < *rated[j].IMDbRating
	})
	return rated, nil
}

// ByDistributor groups qualifying records by distributor and returns mean
// profit per group, sorted descending. Records without a distributor are
// omitted.
func (e *Engine) ByDistributor(ctx context.Context) ([]GroupStat, error) {
	entries, err := e.qualifying(ctx)
	if err != nil {
		return nil, err
	}
	return rollup(entries, func(en ProfitEntry) string { return en.Distributor }), nil
}

// ByGenre groups qualifying records by genre and returns mean profit per
// group, sorted descending. Records without a genre are omitted.
func (e *Engine) ByGenre(ctx context.Context) ([]GroupStat, error) {
	entries, err := e.qualifying(ctx)
	if err != nil {
		return nil, err
	}
	return rollup(entries, func(en ProfitEntry) string { return en.Genre }), nil
}

// qualifying scans the store and returns every record with a positive budget
// and a parseable cumulative gross, with lookup refs resolved to names.
func (e *Engine) qualifying(ctx context.Context) ([]ProfitEntry, error) {
	movies, err := e.store.ListMovies(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "analytics: list movies")
	}
	genres, err := e.lookupNames(ctx, model.CategoryGenre)
	if err != nil {
		return nil, err
	}
	distributors, err := e.lookupNames(ctx, model.CategoryDistributor)
	if err != nil {
		return nil, err
	}

	var entries []ProfitEntry
	for _, m := range movies {
		if m.Budget == nil || *m.Budget <= 0 {
			continue
		}
		gross := CleanGross(m.TotalGross)
		if gross == nil || *gross == 0 {
			continue
		}
		entry := ProfitEntry{
			Title:       m.Title,
			ReleaseYear: m.ReleaseYear,
			Budget:      *m.Budget,
			Gross:       *gross,
			Profit:      *gross - *m.Budget,
			IMDbRating:  m.IMDbRating,
		}
		if m.GenreRef != nil {
			entry.Genre = genres[*m.GenreRef]
		}
		if m.DistributorRef != nil {
			entry.Distributor = distributors[*m.DistributorRef]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (e *Engine) lookupNames(ctx context.Context, category model.LookupCategory) (map[int64]string, error) {
	list, err := e.store.ListLookups(ctx, category)
	if err != nil {
		return nil, eris.Wrapf(err, "analytics: list %s lookups", category)
	}
	names := make(map[int64]string, len(list))
	for _, entry := range list {
		names[entry.ID] = entry.Name
	}
	return names, nil
}

func rollup(entries []ProfitEntry, key func(ProfitEntry) string) []GroupStat {
	sums := map[string]int64{}
	counts := map[string]int{}
	for _, en := range entries {
		k := key(en)
		if k == "" {
			continue
		}
		sums[k] += en.Profit
		counts[k]++
	}

	stats := make([]GroupStat, 0, len(sums))
	for name, sum := range sums {
		stats = append(stats, GroupStat{
			Name:       name,
			Movies:     counts[name],
			MeanProfit: float64(sum) / float64(counts[name]),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].MeanProfit != stats[j].MeanProfit {
			return stats[i].MeanProfit > stats[j].MeanProfit
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// CleanGross parses a source-formatted gross string ("$5,000,000") into an
// integer dollar amount. A nil, empty, "N/A" or otherwise unparseable value
// yields nil, never zero: the record is excluded from computations that need
// it rather than counted as a flop.
func CleanGross(gross *string) *int64 {
	if gross == nil {
		return nil
	}
	s := strings.TrimSpace(*gross)
	if s == "" || s == "N/A" {
		return nil
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
