package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/dataset"
	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/xlingo-lab/pplstat/internal/projectconfig"
	"github.com/xlingo-lab/pplstat/internal/reporting"
)

// inputFlags are the loading and aggregation flags shared by summarize,
// compare and run. Unset flags fall back to the project config.
type inputFlags struct {
	configPath string
	limit      int
	workers    int
	order      string
	options    []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to a config file (default: nearest .pplstat.yaml)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "Records kept per input file, 0 for all (default: from config, 1000)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Number of files decoded concurrently (default: from config, 4)")
	cmd.Flags().StringVar(&f.order, "order", "", "Row order: insertion or key")
	cmd.Flags().StringArrayVar(&f.options, "option", nil, "Aggregation option key=value, e.g. std_dev=population (can be repeated)")
}

func (f *inputFlags) loadConfig() (*projectconfig.ProjectConfig, error) {
	if f.configPath != "" {
		return projectconfig.LoadFile(f.configPath)
	}
	return projectconfig.Load(".")
}

// resolve overlays explicitly set flags onto the config's options.
func (f *inputFlags) resolve(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) (dataset.Options, aggregate.Options, error) {
	ds := cfg.DatasetOptions()
	if cmd.Flags().Changed("limit") {
		if f.limit < 0 {
			return ds, aggregate.Options{}, fmt.Errorf("--limit must be >= 0, got %d", f.limit)
		}
		ds.Limit = f.limit
	}
	if cmd.Flags().Changed("workers") {
		ds.Workers = f.workers
	}

	agg, err := cfg.AggregateOptions()
	if err != nil {
		return ds, aggregate.Options{}, err
	}
	raw, err := aggregate.ParseOptionFlags(f.options)
	if err != nil {
		return ds, aggregate.Options{}, err
	}
	if f.order != "" {
		raw["order"] = f.order
	}
	agg, err = aggregate.DecodeOptions(agg, raw)
	if err != nil {
		return ds, aggregate.Options{}, err
	}
	return ds, agg, nil
}

// summarizeInputs loads paths and aggregates the samples. Undefined
// statistics are logged as warnings.
func summarizeInputs(ctx context.Context, paths []string, ds dataset.Options, agg aggregate.Options) ([]models.Sample, []models.SummaryRow, error) {
	samples, err := dataset.Load(ctx, paths, ds)
	if err != nil {
		return nil, nil, fmt.Errorf("loading inputs: %w", err)
	}
	rows, err := aggregate.Summarize(samples, agg)
	if err != nil {
		return nil, nil, fmt.Errorf("aggregating: %w", err)
	}
	warnUndefined(rows)
	return samples, rows, nil
}

func warnUndefined(rows []models.SummaryRow) {
	for _, u := range aggregate.Undefined(rows) {
		slog.Warn("statistic undefined",
			"condition", u.Key.String(),
			"metric", string(u.Metric),
			"statistic", u.Statistic,
			"reason", u.Reason)
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newRunID() string {
	return uuid.NewString()
}

// writeReportFile renders rows to path, creating parent directories.
func writeReportFile(path string, f reporting.Format, rows []models.SummaryRow, meta reporting.Meta) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := reporting.Write(file, f, rows, meta); err != nil {
		file.Close() //nolint:errcheck
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
