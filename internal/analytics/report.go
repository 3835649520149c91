package analytics

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report bundles every computed view so the renderers can share a single
// pass over the engine's output.
type Report struct {
	Profitability  []ProfitEntry
	RatingVsProfit []ProfitEntry
	ByDistributor  []GroupStat
	ByGenre        []GroupStat
}

var currency = message.NewPrinter(language.AmericanEnglish)

// Dollars formats an integer dollar amount with thousands separators,
// e.g. 5000000 -> "$5,000,000".
func Dollars(n int64) string {
	return currency.Sprintf("$%d", n)
}

// WriteProfitability renders the profitability report as one sentence per
// qualifying record, most profitable first.
func WriteProfitability(w io.Writer, entries []ProfitEntry) error {
	for _, en := range entries {
		verb := "gained"
		amount := en.Profit
		if amount < 0 {
			verb = "lost"
			amount = -amount
		}
		_, err := fmt.Fprintf(w, "%s had a budget of %s and had a gross of %s, so it %s %s.\n",
			en.Title, Dollars(en.Budget), Dollars(en.Gross), verb, Dollars(amount))
		if err != nil {
			return eris.Wrap(err, "analytics: write profitability report")
		}
	}
	return nil
}

// WriteRatingVsProfit renders the rating report, lowest rated first, pairing
// each rating with the record's profit.
func WriteRatingVsProfit(w io.Writer, entries []ProfitEntry) error {
	for _, en := range entries {
		_, err := fmt.Fprintf(w, "%s rated %.1f with a profit of %s.\n",
			en.Title, *en.IMDbRating, Dollars(en.Profit))
		if err != nil {
			return eris.Wrap(err, "analytics: write rating report")
		}
	}
	return nil
}

// WriteGroupStats renders a rollup report, one line per group with its movie
// count and mean profit.
func WriteGroupStats(w io.Writer, label string, stats []GroupStat) error {
	for _, st := range stats {
		_, err := fmt.Fprintf(w, "%s %s: %d movies, mean profit %s.\n",
			label, st.Name, st.Movies, Dollars(int64(st.MeanProfit)))
		if err != nil {
			return eris.Wrapf(err, "analytics: write %s report", label)
		}
	}
	return nil
}

// WriteWorkbook writes the full report as an xlsx workbook with one sheet
// per view.
func WriteWorkbook(path string, report *Report) error {
	file := xlsx.NewFile()

	if err := addEntrySheet(file, "Profitability", report.Profitability, false); err != nil {
		return err
	}
	if err := addEntrySheet(file, "Rating vs Profit", report.RatingVsProfit, true); err != nil {
		return err
	}
	if err := addGroupSheet(file, "By Distributor", report.ByDistributor); err != nil {
		return err
	}
	if err := addGroupSheet(file, "By Genre", report.ByGenre); err != nil {
		return err
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "analytics: save workbook %s", path)
	}
	return nil
}

func addEntrySheet(file *xlsx.File, name string, entries []ProfitEntry, withRating bool) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "analytics: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, cell := range []string{"Title", "Year", "Budget", "Gross", "Profit"} {
		header.AddCell().Value = cell
	}
	if withRating {
		header.AddCell().Value = "IMDb Rating"
	}

	for _, en := range entries {
		row := sheet.AddRow()
		row.AddCell().Value = en.Title
		year := row.AddCell()
		if en.ReleaseYear != nil {
			year.SetInt(*en.ReleaseYear)
		}
		row.AddCell().SetInt64(en.Budget)
		row.AddCell().SetInt64(en.Gross)
		row.AddCell().SetInt64(en.Profit)
		if withRating && en.IMDbRating != nil {
			row.AddCell().SetFloat(*en.IMDbRating)
		}
	}
	return nil
}

func addGroupSheet(file *xlsx.File, name string, stats []GroupStat) error {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "analytics: add sheet %s", name)
	}

	header := sheet.AddRow()
	for _, cell := range []string{"Name", "Movies", "Mean Profit"} {
		header.AddCell().Value = cell
	}

	for _, st := range stats {
		row := sheet.AddRow()
		row.AddCell().Value = st.Name
		row.AddCell().SetInt(st.Movies)
		row.AddCell().SetFloat(st.MeanProfit)
	}
	return nil
}
