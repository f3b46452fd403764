package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
)

// Load reads samples from each path in order. A path may be a scored-result
// folder, a single scored-result file (its model comes from the parent
// folder), or a flat sample CSV (optionally .gz or .zst compressed).
func Load(ctx context.Context, paths []string, opts Options) ([]models.Sample, error) {
	var all []models.Sample
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		samples, err := loadPath(ctx, p, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, samples...)
	}
	slog.Debug("loaded samples", "inputs", len(paths), "samples", len(all))
	return all, nil
}

func loadPath(ctx context.Context, path string, opts Options) ([]models.Sample, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", path, err)
	}
	if info.IsDir() {
		return LoadResultDir(ctx, path, opts)
	}

	if IsCSV(path) {
		return LoadSampleCSV(path, opts)
	}
	if _, _, ok := ParseResultFileName(path); ok {
		return LoadResultFile(path, ModelFromDir(filepath.Dir(path)), opts)
	}
	return nil, fmt.Errorf("input %s: not a scored-result folder, scored-result file or .csv file", path)
}

// IsCSV reports whether path names a (possibly compressed) CSV file.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(trimCompressionExt(path)), ".csv")
}

// LoadSampleCSV reads a flat sample CSV. A flat file can hold several
// conditions, so opts.Limit keeps the first rows of each condition rather
// than of the file, matching the limit per scored-result file.
func LoadSampleCSV(path string, opts Options) ([]models.Sample, error) {
	table, err := LoadCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := CheckColumns(table.Headers); err != nil {
		return nil, fmt.Errorf("csv: %s: %w", path, err)
	}
	samples, err := SamplesFromRows(table.Rows, path)
	if err != nil {
		return nil, err
	}

	total := len(samples)
	samples, dropped := limitPerCondition(samples, opts.Limit)
	if len(dropped) > 0 {
		for key, n := range dropped {
			slog.Debug("limit reached", "file", path, "condition", key.String(), "dropped", n)
		}
		slog.Info("sample csv truncated to limit per condition",
			"file", path, "limit", opts.Limit, "kept", len(samples), "dropped", total-len(samples))
	}
	slog.Debug("loaded sample csv", "file", path, "rows", len(samples))
	return samples, nil
}

// limitPerCondition keeps the first limit samples of every condition, in
// input order. A limit of 0 keeps everything.
func limitPerCondition(samples []models.Sample, limit int) ([]models.Sample, map[models.ConditionKey]int) {
	if limit <= 0 {
		return samples, nil
	}
	seen := make(map[models.ConditionKey]int)
	dropped := make(map[models.ConditionKey]int)
	kept := make([]models.Sample, 0, len(samples))
	for _, s := range samples {
		k := s.Key()
		if seen[k] >= limit {
			dropped[k]++
			continue
		}
		seen[k]++
		kept = append(kept, s)
	}
	return kept, dropped
}
