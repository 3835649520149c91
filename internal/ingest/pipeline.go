package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/source"
	"github.com/reeldata/cinesync/internal/store"
)

// Pipeline sequences one ingestion run: read cursor, pull one ranking page,
// enrich and merge each stub, advance the cursor.
//
// Stubs are processed sequentially, one at a time. A failure fetching detail,
// metadata or box-office facts for one stub is non-fatal: the record is still
// merged with whatever fields were obtained. The cursor is advanced only
// after every stub of the page has been merged, so a crash mid-page leaves
// the page to be retried in full; re-processing is safe because the merge is
// idempotent for unchanged data and null-coalescing for new data.
type Pipeline struct {
	store     store.Store
	ranking   source.RankingSource
	detail    source.DetailSource
	metadata  source.MetadataSource
	boxoffice source.BoxOfficeSource
	merger    *Merger
	cursor    *Cursor
	pageLimit int
}

// NewPipeline creates a Pipeline. pageLimit caps how many stubs of a page
// are processed per run; 0 means no cap. metadata and boxoffice may be nil,
// in which case those enrichments are skipped.
func NewPipeline(
	st store.Store,
	ranking source.RankingSource,
	detail source.DetailSource,
	metadata source.MetadataSource,
	boxoffice source.BoxOfficeSource,
	pageLimit int,
) *Pipeline {
	return &Pipeline{
		store:     st,
		ranking:   ranking,
		detail:    detail,
		metadata:  metadata,
		boxoffice: boxoffice,
		merger:    NewMerger(st),
		cursor:    NewCursor(st),
		pageLimit: pageLimit,
	}
}

// RunResult summarizes one ingestion run.
type RunResult struct {
	RunID     string `json:"run_id"`
	Page      int    `json:"page"`
	Stubs     int    `json:"stubs"`
	EmptyPage bool   `json:"empty_page"`
}

// Run executes one ingestion run.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	last, err := p.cursor.Read(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read cursor")
	}
	page := last + 1
	log := zap.L().With(zap.String("component", "pipeline"), zap.Int("page", page))

	run := &model.IngestRun{
		ID:        uuid.New().String(),
		Page:      page,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := p.store.CreateIngestRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: create run log entry")
	}

	stubs, err := p.ranking.FetchPage(ctx, page)
	if err != nil {
		p.failRun(ctx, run.ID, err)
		return nil, eris.Wrapf(err, "pipeline: fetch page %d", page)
	}
	if len(stubs) == 0 {
		// Normal termination, not an error: the cursor stays put so the
		// next run retries the same page.
		log.Info("empty ranking page, nothing to ingest")
		if err := p.store.CompleteIngestRun(ctx, run.ID, 0); err != nil {
			return nil, eris.Wrap(err, "pipeline: complete run log entry")
		}
		return &RunResult{RunID: run.ID, Page: page, EmptyPage: true}, nil
	}
	if p.pageLimit > 0 && len(stubs) > p.pageLimit {
		stubs = stubs[:p.pageLimit]
	}

	log.Info("processing ranking page", zap.Int("stubs", len(stubs)))

	boxIndex := p.loadBoxOfficeIndex(ctx, log)

	for _, stub := range stubs {
		if err := p.processStub(ctx, stub, boxIndex); err != nil {
			p.failRun(ctx, run.ID, err)
			return nil, eris.Wrapf(err, "pipeline: process %q", stub.Title)
		}
	}

	if err := p.cursor.Advance(ctx, page); err != nil {
		p.failRun(ctx, run.ID, err)
		return nil, eris.Wrap(err, "pipeline: advance cursor")
	}
	if err := p.store.CompleteIngestRun(ctx, run.ID, len(stubs)); err != nil {
		return nil, eris.Wrap(err, "pipeline: complete run log entry")
	}

	log.Info("page complete", zap.Int("stubs", len(stubs)))
	return &RunResult{RunID: run.ID, Page: page, Stubs: len(stubs)}, nil
}

// processStub merges the stub and its enrichments into the store. Source
// failures are logged and treated as "fields unavailable for this sighting";
// only store errors propagate.
func (p *Pipeline) processStub(ctx context.Context, stub source.Stub, boxIndex map[string]source.BoxOfficeRow) error {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("title", stub.Title))

	if _, err := p.merger.Merge(ctx, rankingPartial(stub)); err != nil {
		return eris.Wrap(err, "merge ranking stub")
	}

	detail, err := p.detail.FetchDetail(ctx, stub.TMDbID)
	if err != nil {
		log.Warn("detail fetch failed, continuing without", zap.Error(err))
		detail = nil
	}
	if detail != nil {
		if _, err := p.merger.Merge(ctx, model.DetailFields{
			TMDbID: stub.TMDbID,
			IMDbID: detail.IMDbID,
			Budget: detail.Budget,
		}); err != nil {
			return eris.Wrap(err, "merge detail fields")
		}
	}

	if p.metadata != nil && detail != nil && detail.IMDbID != nil {
		meta, err := p.metadata.FetchMetadata(ctx, *detail.IMDbID)
		if err != nil {
			log.Warn("metadata fetch failed, continuing without", zap.Error(err))
			meta = nil
		}
		if meta != nil {
			if _, err := p.merger.Merge(ctx, model.MetadataFields{
				IMDbID:     *detail.IMDbID,
				Genre:      meta.Genre,
				IMDbRating: meta.IMDbRating,
				IMDbVotes:  meta.IMDbVotes,
			}); err != nil {
				return eris.Wrap(err, "merge metadata fields")
			}
		}
	}

	if row, ok := boxIndex[stub.Title]; ok {
		if _, err := p.merger.Merge(ctx, boxOfficePartial(row)); err != nil {
			return eris.Wrap(err, "merge box-office facts")
		}
	}

	return nil
}

// loadBoxOfficeIndex fetches the box-office table once per run and indexes
// it by title. A fetch failure is non-fatal: every stub simply gets no
// box-office fields this sighting.
func (p *Pipeline) loadBoxOfficeIndex(ctx context.Context, log *zap.Logger) map[string]source.BoxOfficeRow {
	if p.boxoffice == nil {
		return nil
	}
	rows, err := p.boxoffice.FetchTable(ctx)
	if err != nil {
		log.Warn("box-office fetch failed, continuing without", zap.Error(err))
		return nil
	}
	index := make(map[string]source.BoxOfficeRow, len(rows))
	for _, row := range rows {
		if _, seen := index[row.Title]; !seen {
			index[row.Title] = row
		}
	}
	return index
}

func (p *Pipeline) failRun(ctx context.Context, runID string, cause error) {
	if err := p.store.FailIngestRun(ctx, runID, cause.Error()); err != nil {
		zap.L().Warn("failed to record run failure", zap.String("run_id", runID), zap.Error(err))
	}
}

func rankingPartial(stub source.Stub) model.RankingStub {
	pop := stub.Popularity
	votes := stub.VoteCount
	avg := stub.AverageVote
	return model.RankingStub{
		TMDbID:      stub.TMDbID,
		Title:       stub.Title,
		ReleaseDate: stub.ReleaseDate,
		Popularity:  &pop,
		VoteCount:   &votes,
		AverageVote: &avg,
	}
}

func boxOfficePartial(row source.BoxOfficeRow) model.BoxOfficeFacts {
	gross := row.OpeningGross
	theaters := row.Theaters
	total := row.TotalGross
	distributor := row.Distributor
	return model.BoxOfficeFacts{
		Title:        row.Title,
		OpeningGross: &gross,
		Theaters:     &theaters,
		TotalGross:   &total,
		Distributor:  &distributor,
	}
}
