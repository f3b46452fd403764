package reporting

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/xlingo-lab/pplstat/internal/metrics"
	"github.com/xlingo-lab/pplstat/internal/models"
)

// jsonRow mirrors the CSV columns. Means and standard deviations are rounded
// numbers, CVs are percentage strings, and undefined statistics are null.
type jsonRow struct {
	InputFolder       string   `json:"input_folder"`
	File              string   `json:"file"`
	AveragePerplexity float64  `json:"average_perplexity"`
	StdDevPerplexity  *float64 `json:"std_dev_perplexity"`
	CVPerplexity      *string  `json:"cv_perplexity"`
	AverageLoss       float64  `json:"average_loss"`
	StdDevLoss        *float64 `json:"std_dev_loss"`
	CVLoss            *string  `json:"cv_loss"`
	Count             int      `json:"count"`
}

func roundedPtr(st models.Statistic) *float64 {
	if !st.IsDefined() {
		return nil
	}
	v := metrics.Round(st.Value, ValuePlaces)
	return &v
}

func percentPtr(st models.Statistic) *string {
	if !st.IsDefined() {
		return nil
	}
	s := FormatPercent(st.Value)
	return &s
}

func toJSONRow(r models.SummaryRow) jsonRow {
	return jsonRow{
		InputFolder:       r.Group(),
		File:              r.Label(),
		AveragePerplexity: metrics.Round(r.Perplexity.Mean, ValuePlaces),
		StdDevPerplexity:  roundedPtr(r.Perplexity.StdDev),
		CVPerplexity:      percentPtr(r.Perplexity.CV),
		AverageLoss:       metrics.Round(r.Loss.Mean, ValuePlaces),
		StdDevLoss:        roundedPtr(r.Loss.StdDev),
		CVLoss:            percentPtr(r.Loss.CV),
		Count:             r.Count,
	}
}

// WriteJSON writes rows as an indented JSON array keyed like the CSV header.
func WriteJSON(w io.Writer, rows []models.SummaryRow) error {
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toJSONRow(r))
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("json: encoding report: %w", err)
	}
	return nil
}
