package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/cache"
	"github.com/xlingo-lab/pplstat/internal/dataset"
	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/xlingo-lab/pplstat/internal/projectconfig"
	"github.com/xlingo-lab/pplstat/internal/reporting"
	"github.com/xlingo-lab/pplstat/internal/spinner"
)

type runFlags struct {
	in         inputFlags
	formats    []string
	outDir     string
	cacheDir   string
	clearCache bool
}

func newRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Write statistics for every configured input",
		Long: `Process every input listed in .pplstat.yaml.

Each input is summarized on its own and written in every configured output
format. Reports land in output.dir as "<name>_perplexity_loss_statistics.<ext>"
unless the input names an explicit csv or json path.

With --cache-dir, summaries are stored keyed by the content of each input and
the aggregation options, and unchanged inputs are not decoded again.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, _ []string) error {
			return runCommandE(cmd, &f)
		},
	}

	f.in.register(cmd)
	cmd.Flags().StringSliceVar(&f.formats, "format", nil, "Output formats, overriding the config (csv, json, table, markdown, html)")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "Output directory, overriding the config")
	cmd.Flags().StringVar(&f.cacheDir, "cache-dir", "", "Reuse summaries of unchanged inputs from this directory")
	cmd.Flags().BoolVar(&f.clearCache, "clear-cache", false, "Empty the cache directory before running")

	return cmd
}

func runCommandE(cmd *cobra.Command, f *runFlags) error {
	cfg, err := f.in.loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("no inputs configured: run 'pplstat init' or add inputs to %s", projectconfig.FileName)
	}
	if f.outDir != "" {
		// relative to the working directory, not the config file
		if cfg.Output.Dir, err = filepath.Abs(f.outDir); err != nil {
			return fmt.Errorf("resolving path %q: %w", f.outDir, err)
		}
	}
	if len(f.formats) > 0 {
		cfg.Output.Formats = f.formats
	}

	formats := make([]reporting.Format, 0, len(cfg.Output.Formats))
	for _, s := range cfg.Output.Formats {
		format, err := reporting.ParseFormat(s)
		if err != nil {
			return err
		}
		formats = append(formats, format)
	}

	ds, agg, err := f.in.resolve(cmd, cfg)
	if err != nil {
		return err
	}

	c := cache.New(f.cacheDir)
	if f.clearCache {
		if err := c.Clear(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
	}

	runID := newRunID()
	logger := slog.With("run_id", runID)
	meta := reporting.Meta{RunID: runID, Generated: time.Now()}
	out := cmd.OutOrStdout()

	progress := spinner.Start(cmd.ErrOrStderr(), "")
	defer progress.Stop()
	level := progressLevel(progress.Active())

	written := 0
	for i, input := range cfg.Inputs {
		path := cfg.Resolve(input.Path)
		logger.Log(cmd.Context(), level, "processing input", "path", path)
		progress.Update(fmt.Sprintf("[%d/%d] %s", i+1, len(cfg.Inputs), input.Path))

		rows, err := summarizeCached(cmd, c, path, ds, agg, logger)
		if err != nil {
			return fmt.Errorf("input %s: %w", input.Path, err)
		}

		meta.Title = "Perplexity and loss statistics: " + input.OutputName()
		for _, format := range formats {
			dest := cfg.OutputPath(input, string(format), format.Ext())
			if err := writeReportFile(dest, format, rows, meta); err != nil {
				return err
			}
			logger.Debug("wrote report", "path", dest, "format", string(format), "conditions", len(rows))
			fmt.Fprintf(out, "  %s\n", dest) //nolint:errcheck
			written++
		}
	}
	progress.Stop()

	fmt.Fprintf(out, "Run %s: %d input(s), %d report(s)\n", runID, len(cfg.Inputs), written) //nolint:errcheck
	return nil
}

// summarizeCached returns the cached rows for path when its content and the
// options are unchanged, and summarizes and stores them otherwise.
func summarizeCached(cmd *cobra.Command, c *cache.Cache, path string, ds dataset.Options, agg aggregate.Options, logger *slog.Logger) ([]models.SummaryRow, error) {
	key := cacheKey(c, path, ds, agg)
	if key != "" {
		if rows, ok := c.Get(key); ok {
			logger.Debug("cache hit", "path", path, "key", key)
			warnUndefined(rows)
			return rows, nil
		}
	}

	_, rows, err := summarizeInputs(cmd.Context(), []string{path}, ds, agg)
	if err != nil {
		return nil, err
	}
	if key != "" {
		if err := c.Put(key, rows); err != nil {
			logger.Warn("failed to cache summary", "path", path, "error", err)
		}
	}
	return rows, nil
}

// cacheKey returns the cache key of path, or "" when the cache is disabled.
// Unreadable inputs also get no key; the loader reports them.
func cacheKey(c *cache.Cache, path string, ds dataset.Options, agg aggregate.Options) string {
	if !c.Enabled() {
		return ""
	}
	key, err := cache.Key([]string{path}, ds, agg)
	if err != nil {
		return ""
	}
	return key
}

// progressLevel is the level of per-input log lines. While the spinner is
// drawn they would break its line, so they drop to debug.
func progressLevel(spinnerActive bool) slog.Level {
	if spinnerActive {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
