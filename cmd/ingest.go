package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/reeldata/cinesync/internal/ingest"
	"github.com/reeldata/cinesync/internal/source"
)

var ingestPages int

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the next ranking page(s) into the store",
	Long:  "Resumes from the saved page cursor, fetches the next popularity page, enriches each title from the detail API, OMDb and the box-office table, and merges the results. The cursor only advances after a page lands completely.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.TMDb.Key == "" {
			return eris.New("tmdb API key is required (CINESYNC_TMDB_KEY)")
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tmdb := source.NewTMDbClient(cfg.TMDb.Key, cfg.TMDb.Language,
			source.WithTMDbBaseURL(cfg.TMDb.BaseURL),
			source.WithTMDbLimiter(rate.NewLimiter(rate.Limit(cfg.TMDb.RateLimit), 1)),
		)

		var omdb source.MetadataSource
		if cfg.OMDb.Key != "" {
			omdb = source.NewOMDbClient(cfg.OMDb.Key,
				source.WithOMDbBaseURL(cfg.OMDb.BaseURL),
				source.WithOMDbLimiter(rate.NewLimiter(rate.Limit(cfg.OMDb.RateLimit), 1)),
			)
		} else {
			zap.L().Warn("no OMDb API key configured, skipping genre and rating enrichment")
		}

		var boxoffice source.BoxOfficeSource
		if cfg.BoxOffice.SnapshotURL != "" {
			boxoffice = source.NewBoxOfficeClient(cfg.BoxOffice.SnapshotURL)
		} else {
			zap.L().Warn("no box-office snapshot configured, skipping gross enrichment")
		}

		pipeline := ingest.NewPipeline(st, tmdb, tmdb, omdb, boxoffice, cfg.Ingest.PageLimit)

		for i := 0; i < ingestPages; i++ {
			result, err := pipeline.Run(ctx)
			if err != nil {
				return eris.Wrap(err, "ingest")
			}
			if result.EmptyPage {
				zap.L().Info("ranking exhausted", zap.Int("page", result.Page))
				break
			}
			zap.L().Info("page ingested",
				zap.String("run_id", result.RunID),
				zap.Int("page", result.Page),
				zap.Int("stubs", result.Stubs),
			)
		}

		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestPages, "pages", 1, "number of ranking pages to ingest")
	rootCmd.AddCommand(ingestCmd)
}
