package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/reeldata/cinesync/internal/model"
	"github.com/reeldata/cinesync/internal/store"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the page cursor, record counts and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cursor, err := st.GetCheckpoint(ctx, store.CursorKey)
		if err != nil {
			return eris.Wrap(err, "status: read cursor")
		}
		if cursor == "" {
			cursor = "unset (next run starts at page 1)"
		}

		movies, err := st.CountMovies(ctx)
		if err != nil {
			return eris.Wrap(err, "status: count movies")
		}
		genres, err := st.ListLookups(ctx, model.CategoryGenre)
		if err != nil {
			return eris.Wrap(err, "status: list genres")
		}
		distributors, err := st.ListLookups(ctx, model.CategoryDistributor)
		if err != nil {
			return eris.Wrap(err, "status: list distributors")
		}

		fmt.Printf("Cursor:        %s\n", cursor)
		fmt.Printf("Movies:        %d\n", movies)
		fmt.Printf("Genres:        %d\n", len(genres))
		fmt.Printf("Distributors:  %d\n\n", len(distributors))

		runs, err := st.ListIngestRuns(ctx, statusLimit)
		if err != nil {
			return eris.Wrap(err, "status: list runs")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No ingestion runs yet. Run 'cinesync ingest' to start.")
			return nil
		}

		formatRuns(os.Stdout, runs)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}

// formatRuns writes a tabular representation of ingestion runs to out.
func formatRuns(out io.Writer, runs []model.IngestRun) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tPAGE\tSTATUS\tSTARTED\tDURATION\tSTUBS\tERROR")
	_, _ = fmt.Fprintln(w, "---\t----\t------\t-------\t--------\t-----\t-----")

	for _, r := range runs {
		dur := "-"
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		errMsg := r.Error
		if len(errMsg) > 60 {
			errMsg = errMsg[:57] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\t%s\n",
			r.ID[:8],
			r.Page,
			r.Status,
			r.StartedAt.Format("2006-01-02 15:04"),
			dur,
			r.Stubs,
			errMsg,
		)
	}
	_ = w.Flush()
}
