package analytics

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestDollars(t *testing.T) {
	assert.Equal(t, "$5,000,000", Dollars(5_000_000))
	assert.Equal(t, "$0", Dollars(0))
	assert.Equal(t, "$999", Dollars(999))
}

func TestWriteProfitability_SentencePerMovie(t *testing.T) {
	entries := []ProfitEntry{
		{Title: "Hit", Budget: 2_000_000, Gross: 5_000_000, Profit: 3_000_000},
		{Title: "Flop", Budget: 10_000_000, Gross: 1_000_000, Profit: -9_000_000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProfitability(&buf, entries))

	out := buf.String()
	assert.Contains(t, out, "Hit had a budget of $2,000,000 and had a gross of $5,000,000, so it gained $3,000,000.")
	assert.Contains(t, out, "Flop had a budget of $10,000,000 and had a gross of $1,000,000, so it lost $9,000,000.")
}

func TestWriteRatingVsProfit(t *testing.T) {
	entries := []ProfitEntry{
		{Title: "Rated", Profit: 1_500_000, IMDbRating: float64Ptr(7.4)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRatingVsProfit(&buf, entries))
	assert.Contains(t, buf.String(), "Rated rated 7.4 with a profit of $1,500,000.")
}

func TestWriteGroupStats(t *testing.T) {
	stats := []GroupStat{
		{Name: "A24", Movies: 2, MeanProfit: 3_000_000},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGroupStats(&buf, "Distributor", stats))
	assert.Contains(t, buf.String(), "Distributor A24: 2 movies, mean profit $3,000,000.")
}

func TestWriteWorkbook(t *testing.T) {
	report := &Report{
		Profitability: []ProfitEntry{
			{Title: "Hit", Budget: 2_000_000, Gross: 5_000_000, Profit: 3_000_000},
		},
		RatingVsProfit: []ProfitEntry{
			{Title: "Hit", Budget: 2_000_000, Gross: 5_000_000, Profit: 3_000_000, IMDbRating: float64Ptr(7.4)},
		},
		ByDistributor: []GroupStat{{Name: "A24", Movies: 1, MeanProfit: 3_000_000}},
		ByGenre:       []GroupStat{{Name: "Action", Movies: 1, MeanProfit: 3_000_000}},
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteWorkbook(path, report))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 4)
	assert.Equal(t, "Profitability", file.Sheets[0].Name)

	// Header row plus one data row.
	require.Len(t, file.Sheets[0].Rows, 2)
	assert.Equal(t, "Hit", file.Sheets[0].Rows[1].Cells[0].Value)
}
