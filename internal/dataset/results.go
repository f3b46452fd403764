package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/xlingo-lab/pplstat/internal/validation"
	"golang.org/x/sync/errgroup"
)

const (
	// ResultsDirSuffix is stripped from a scored-result folder name to get the model id.
	ResultsDirSuffix = "_results"

	resultFilePrefix = "prompt_"
	resultFileInfix  = "_response_"
	resultFileSuffix = "_perplexity"
	defaultWorkers   = 4
)

// Options controls how inputs are read.
type Options struct {
	// Limit keeps only the first N records of each scored-result file, and
	// the first N rows of each flat CSV. 0 means unlimited.
	Limit int
	// Workers bounds how many files are decoded at once. <= 0 uses 4.
	Workers int
	// SkipValidation disables the JSON schema check of scored-result files.
	SkipValidation bool
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return defaultWorkers
	}
	return o.Workers
}

// ValidationError lists the schema violations of one scored-result file.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s does not match the scored-results schema:\n  %s", e.Path, strings.Join(e.Errors, "\n  "))
}

// record mirrors one entry of a scored-result file. Pointers tell a missing
// field apart from a zero value.
type record struct {
	LineNumber *int     `json:"line_number"`
	Prompt     string   `json:"prompt"`
	Response   string   `json:"response"`
	Loss       *float64 `json:"loss"`
	Perplexity *float64 `json:"perplexity"`
}

// ModelFromDir returns the model id for a scored-result folder:
// "data/llama_results" is model "llama".
func ModelFromDir(dir string) string {
	return strings.TrimSuffix(filepath.Base(filepath.Clean(dir)), ResultsDirSuffix)
}

// ParseResultFileName extracts the prompt and response languages from a
// name like "prompt_en_zh_response_en_en_perplexity.json". The
// "_perplexity" part and a .gz/.zst extension are optional.
func ParseResultFileName(name string) (prompt, response models.Language, ok bool) {
	stem := trimCompressionExt(filepath.Base(name))
	if !strings.EqualFold(filepath.Ext(stem), ".json") {
		return "", "", false
	}
	stem = strings.TrimSuffix(stem[:len(stem)-len(".json")], resultFileSuffix)

	rest, found := strings.CutPrefix(stem, resultFilePrefix)
	if !found {
		return "", "", false
	}
	pl, rl, found := strings.Cut(rest, resultFileInfix)
	if !found || pl == "" || rl == "" {
		return "", "", false
	}
	return models.Language(pl), models.Language(rl), true
}

// LoadResultFile reads one scored-result file. Every record becomes a
// sample of model with the languages encoded in the file name.
func LoadResultFile(path, model string, opts Options) ([]models.Sample, error) {
	pl, rl, ok := ParseResultFileName(path)
	if !ok {
		return nil, fmt.Errorf("%s: file name does not match prompt_<lang>_response_<lang>_perplexity.json", path)
	}

	rc, err := openInput(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if !opts.SkipValidation {
		if errs := validation.ValidateScoredResults(data); len(errs) > 0 {
			return nil, &ValidationError{Path: path, Errors: errs}
		}
	}

	var records []record
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}

	source := filepath.Base(filepath.Dir(path))
	file := filepath.Base(path)
	samples := make([]models.Sample, 0, len(records))
	for i, r := range records {
		s := models.Sample{
			Model:            model,
			PromptLanguage:   pl,
			ResponseLanguage: rl,
			Index:            i + 1,
			Source:           source,
			File:             file,
		}
		if r.LineNumber != nil {
			s.Index = *r.LineNumber
		}
		if r.Perplexity == nil {
			return nil, &models.DataError{Sample: s, Field: "perplexity", Reason: "missing value"}
		}
		if r.Loss == nil {
			return nil, &models.DataError{Sample: s, Field: "loss", Reason: "missing value"}
		}
		s.Perplexity, s.Loss = *r.Perplexity, *r.Loss
		samples = append(samples, s)
	}

	slog.Debug("loaded scored results", "file", path, "records", len(samples))
	return samples, nil
}

// ResultFiles lists the scored-result files of dir, sorted by name.
func ResultFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, _, ok := ParseResultFileName(e.Name()); ok {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

// LoadResultDir reads every scored-result file of a "<model>_results"
// folder. Files are decoded concurrently; samples come back in file-name
// order, and in record order within each file.
func LoadResultDir(ctx context.Context, dir string, opts Options) ([]models.Sample, error) {
	files, err := ResultFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if len(files) == 0 {
		slog.Warn("no scored-result files found", "dir", dir)
		return []models.Sample{}, nil
	}

	model := ModelFromDir(dir)
	perFile := make([][]models.Sample, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			samples, err := LoadResultFile(path, model, opts)
			if err != nil {
				return err
			}
			perFile[i] = samples
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return slices.Concat(perFile...), nil
}
