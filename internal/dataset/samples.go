package dataset

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
)

// Flat sample CSV columns. index, source and file are optional.
const (
	ColumnModel            = "model"
	ColumnPromptLanguage   = "prompt_language"
	ColumnResponseLanguage = "response_language"
	ColumnPerplexity       = "perplexity"
	ColumnLoss             = "loss"
	ColumnIndex            = "index"
	ColumnSource           = "source"
	ColumnFile             = "file"
)

// RequiredColumns lists the columns every flat sample CSV must carry.
var RequiredColumns = []string{ColumnModel, ColumnPromptLanguage, ColumnResponseLanguage, ColumnPerplexity, ColumnLoss}

// CheckColumns reports the first required column missing from headers.
func CheckColumns(headers []string) error {
	for _, col := range RequiredColumns {
		if !slices.Contains(headers, col) {
			return fmt.Errorf("missing required column %q (need %s)", col, strings.Join(RequiredColumns, ","))
		}
	}
	return nil
}

// SamplesFromRows converts flat CSV rows into samples. Rows without an index
// column are numbered from 1. All rows must carry the columns of the first.
// Values are parsed but not range-checked; aggregation rejects non-finite or
// out-of-range values.
func SamplesFromRows(rows []Row, file string) ([]models.Sample, error) {
	if len(rows) == 0 {
		return []models.Sample{}, nil
	}
	base := filepath.Base(file)

	for _, col := range RequiredColumns {
		if _, ok := rows[0][col]; !ok {
			return nil, &models.DataError{Sample: newSample(rows[0], 0, base), Field: col, Reason: "column missing"}
		}
	}

	samples := make([]models.Sample, 0, len(rows))
	for i, row := range rows {
		s := newSample(row, i, base)

		if v := strings.TrimSpace(row[ColumnIndex]); v != "" {
			idx, err := strconv.Atoi(v)
			if err != nil {
				return nil, &models.DataError{Sample: s, Field: ColumnIndex, Reason: fmt.Sprintf("not an integer: %q", v)}
			}
			s.Index = idx
		}

		var err error
		if s.Perplexity, err = parseValue(s, ColumnPerplexity, row[ColumnPerplexity]); err != nil {
			return nil, err
		}
		if s.Loss, err = parseValue(s, ColumnLoss, row[ColumnLoss]); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func newSample(row Row, i int, base string) models.Sample {
	s := models.Sample{
		Model:            strings.TrimSpace(row[ColumnModel]),
		PromptLanguage:   models.Language(strings.TrimSpace(row[ColumnPromptLanguage])),
		ResponseLanguage: models.Language(strings.TrimSpace(row[ColumnResponseLanguage])),
		Index:            i + 1,
		Source:           row[ColumnSource],
		File:             row[ColumnFile],
	}
	if s.File == "" && s.Source == "" {
		s.File = base
	}
	return s
}

func parseValue(s models.Sample, field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &models.DataError{Sample: s, Field: field, Reason: "missing value"}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &models.DataError{Sample: s, Field: field, Reason: fmt.Sprintf("not a number: %q", raw)}
	}
	return v, nil
}
