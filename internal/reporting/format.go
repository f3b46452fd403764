package reporting

import (
	"strconv"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/metrics"
	"github.com/xlingo-lab/pplstat/internal/models"
)

// Decimal places used when rendering statistics. Summaries keep full
// precision; rounding happens only here.
const (
	ValuePlaces   = 4
	PercentPlaces = 2
)

// NotAvailable is written in place of an undefined statistic.
const NotAvailable = "n/a"

// Header is the column header of the statistics report.
var Header = []string{
	"input_folder", "file",
	"average_perplexity", "std_dev_perplexity", "cv_perplexity",
	"average_loss", "std_dev_loss", "cv_loss",
}

// FormatNumber rounds v to ValuePlaces and drops trailing zeros, keeping at
// least one decimal digit ("0.243", "4.0").
func FormatNumber(v float64) string {
	return formatRounded(v, ValuePlaces)
}

// FormatPercent rounds v to PercentPlaces and appends "%" ("23.67%").
func FormatPercent(v float64) string {
	return formatRounded(v, PercentPlaces) + "%"
}

func formatRounded(v float64, places int) string {
	r := metrics.Round(v, places)
	if r == 0 {
		r = 0 // drop negative zero
	}
	s := strconv.FormatFloat(r, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatStatistic renders st as a number or percentage, or NotAvailable.
func FormatStatistic(st models.Statistic, percent bool) string {
	if !st.IsDefined() {
		return NotAvailable
	}
	if percent {
		return FormatPercent(st.Value)
	}
	return FormatNumber(st.Value)
}

// FormatColumn renders column c of row r.
func FormatColumn(r models.SummaryRow, c models.Column) string {
	return FormatStatistic(r.Value(c), c.IsPercent())
}

// Record returns the report fields of r in Header order.
func Record(r models.SummaryRow) []string {
	rec := make([]string, 0, len(Header))
	rec = append(rec, r.Group(), r.Label())
	for _, c := range models.Columns {
		rec = append(rec, FormatColumn(r, c))
	}
	return rec
}
