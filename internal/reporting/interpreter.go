package reporting

import (
	"fmt"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
)

// InterpretCV returns a plain-language label for a coefficient of variation
// given in percent.
func InterpretCV(st models.Statistic) string {
	if !st.IsDefined() {
		return "Undefined (" + st.Err.Reason + ")"
	}
	switch cv := st.Value; {
	case cv < 10:
		return "Low dispersion (<10%)"
	case cv < 25:
		return "Moderate dispersion (10-25%)"
	case cv < 50:
		return "High dispersion (25-50%)"
	default:
		return "Very high dispersion (>=50%)"
	}
}

// InterpretPerplexity describes how predictable the scoring model found the
// responses of a condition.
func InterpretPerplexity(mean float64) string {
	switch {
	case mean < 5:
		return fmt.Sprintf("Highly predictable (mean perplexity %.2f)", mean)
	case mean < 20:
		return fmt.Sprintf("Moderately predictable (mean perplexity %.2f)", mean)
	default:
		return fmt.Sprintf("Hard to predict (mean perplexity %.2f)", mean)
	}
}

// FormatSummaryReport produces a plain-language report of the summary rows.
func FormatSummaryReport(rows []models.SummaryRow) string {
	var b strings.Builder

	b.WriteString("=== Interpretation ===\n\n")
	if len(rows) == 0 {
		b.WriteString("No samples.\n")
		return b.String()
	}

	total := 0
	for _, r := range rows {
		total += r.Count
	}
	b.WriteString(fmt.Sprintf("Conditions: %d, samples: %d\n\n", len(rows), total))

	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s (%d samples)\n", r.Key, r.Count))
		b.WriteString(fmt.Sprintf("    %s\n", InterpretPerplexity(r.Perplexity.Mean)))
		b.WriteString(fmt.Sprintf("    Perplexity: %s\n", InterpretCV(r.Perplexity.CV)))
		b.WriteString(fmt.Sprintf("    Loss:       %s\n", InterpretCV(r.Loss.CV)))
	}
	return b.String()
}
