package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reeldata/cinesync/internal/analytics"
)

var (
	reportOut  string
	reportXLSX bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write profitability and rating reports",
	Long:  "Computes profitability, rating-vs-profit and per-genre/per-distributor rollups from the accumulated records and writes them as text files, optionally plus an xlsx workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine := analytics.NewEngine(st)

		report := &analytics.Report{}
		if report.Profitability, err = engine.Profitability(ctx); err != nil {
			return err
		}
		if report.RatingVsProfit, err = engine.RatingVsProfit(ctx); err != nil {
			return err
		}
		if report.ByDistributor, err = engine.ByDistributor(ctx); err != nil {
			return err
		}
		if report.ByGenre, err = engine.ByGenre(ctx); err != nil {
			return err
		}

		outDir := reportOut
		if outDir == "" {
			outDir = cfg.Report.OutDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrapf(err, "report: create output dir %s", outDir)
		}

		g, _ := errgroup.WithContext(ctx)
		g.Go(func() error {
			return writeReportFile(filepath.Join(outDir, "profitability.txt"), func(f *os.File) error {
				return analytics.WriteProfitability(f, report.Profitability)
			})
		})
		g.Go(func() error {
			return writeReportFile(filepath.Join(outDir, "rating_vs_profit.txt"), func(f *os.File) error {
				return analytics.WriteRatingVsProfit(f, report.RatingVsProfit)
			})
		})
		g.Go(func() error {
			return writeReportFile(filepath.Join(outDir, "by_distributor.txt"), func(f *os.File) error {
				return analytics.WriteGroupStats(f, "Distributor", report.ByDistributor)
			})
		})
		g.Go(func() error {
			return writeReportFile(filepath.Join(outDir, "by_genre.txt"), func(f *os.File) error {
				return analytics.WriteGroupStats(f, "Genre", report.ByGenre)
			})
		})
		if reportXLSX {
			g.Go(func() error {
				return analytics.WriteWorkbook(filepath.Join(outDir, "report.xlsx"), report)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("reports written",
			zap.String("dir", outDir),
			zap.Int("qualifying", len(report.Profitability)),
		)
		return nil
	},
}

func writeReportFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output directory (default from config)")
	reportCmd.Flags().BoolVar(&reportXLSX, "xlsx", false, "also write an xlsx workbook")
	rootCmd.AddCommand(reportCmd)
}
