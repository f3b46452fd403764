package wizard

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/dataset"
	"github.com/xlingo-lab/pplstat/internal/projectconfig"
	"github.com/xlingo-lab/pplstat/internal/reporting"
	"github.com/xlingo-lab/pplstat/internal/validation"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Answers holds all fields collected during the interactive wizard.
type Answers struct {
	Inputs    []string
	Limit     int
	StdDev    aggregate.StdDevMode
	Order     aggregate.Order
	Formats   []string
	OutputDir string
}

// DefaultAnswers pre-fills the wizard with the project defaults and any
// "<model>_results" folders found under dir.
func DefaultAnswers(dir string) Answers {
	opts := aggregate.DefaultOptions()
	return Answers{
		Inputs:    DiscoverInputs(dir),
		Limit:     projectconfig.DefaultLimit,
		StdDev:    opts.StdDev,
		Order:     opts.Order,
		Formats:   slices.Clone(projectconfig.DefaultFormats),
		OutputDir: projectconfig.DefaultOutputDir,
	}
}

// DiscoverInputs lists scored-result folders up to two levels below dir,
// relative to dir.
func DiscoverInputs(dir string) []string {
	var found []string
	for _, pattern := range []string{"*" + dataset.ResultsDirSuffix, filepath.Join("*", "*"+dataset.ResultsDirSuffix)} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				if rel, err := filepath.Rel(dir, m); err == nil {
					found = append(found, filepath.ToSlash(rel))
				}
			}
		}
	}
	slices.Sort(found)
	return found
}

// RunConfigWizard runs an interactive huh form to collect .pplstat.yaml settings.
func RunConfigWizard(in io.Reader, out io.Writer, initial Answers) (*Answers, error) {
	var (
		inputsRaw = strings.Join(initial.Inputs, ", ")
		limitRaw  = strconv.Itoa(initial.Limit)
		stdDev    = string(initial.StdDev)
		order     = string(initial.Order)
		formats   = initial.Formats
		outputDir = initial.OutputDir
	)

	formatOptions := make([]huh.Option[string], 0, len(reporting.Formats))
	for _, f := range reporting.Formats {
		formatOptions = append(formatOptions, huh.NewOption(string(f), string(f)).Selected(slices.Contains(formats, string(f))))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Inputs").
				Description("Comma-separated scored-result folders or sample CSV files").
				Placeholder("data/llama_results, data/qwen_results").
				Value(&inputsRaw).
				Validate(func(s string) error {
					if len(splitAndTrim(s)) == 0 {
						return fmt.Errorf("at least one input is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Record limit").
				Description("Records kept per file (0 for all)").
				Value(&limitRaw).
				Validate(func(s string) error {
					_, err := parseLimit(s)
					return err
				}),
			huh.NewSelect[string]().
				Title("Standard deviation").
				Options(
					huh.NewOption("sample (n-1)", string(aggregate.StdDevSample)),
					huh.NewOption("population (n)", string(aggregate.StdDevPopulation)),
				).
				Value(&stdDev),
			huh.NewSelect[string]().
				Title("Row order").
				Options(
					huh.NewOption("first occurrence", string(aggregate.OrderInsertion)),
					huh.NewOption("sorted by model and languages", string(aggregate.OrderKey)),
				).
				Value(&order),
			huh.NewMultiSelect[string]().
				Title("Report formats").
				Options(formatOptions...).
				Value(&formats),
			huh.NewInput().
				Title("Output directory").
				Value(&outputDir),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	limit, err := parseLimit(limitRaw)
	if err != nil {
		return nil, err
	}
	return &Answers{
		Inputs:    splitAndTrim(inputsRaw),
		Limit:     limit,
		StdDev:    aggregate.StdDevMode(stdDev),
		Order:     aggregate.Order(order),
		Formats:   formats,
		OutputDir: strings.TrimSpace(outputDir),
	}, nil
}

// BuildConfig turns wizard answers into a config holding only the values
// that differ from what the loader would fill in anyway.
func BuildConfig(a Answers) *projectconfig.ProjectConfig {
	cfg := &projectconfig.ProjectConfig{}
	for _, p := range a.Inputs {
		cfg.Inputs = append(cfg.Inputs, projectconfig.InputConfig{Path: p})
	}

	limit := a.Limit
	cfg.Dataset.Limit = &limit

	defaults := aggregate.DefaultOptions()
	agg := map[string]any{}
	if a.StdDev != "" && a.StdDev != defaults.StdDev {
		agg["std_dev"] = string(a.StdDev)
	}
	if a.Order != "" && a.Order != defaults.Order {
		agg["order"] = string(a.Order)
	}
	if len(agg) > 0 {
		cfg.Aggregate = agg
	}

	if a.OutputDir != "" && a.OutputDir != projectconfig.DefaultOutputDir {
		cfg.Output.Dir = a.OutputDir
	}
	if len(a.Formats) > 0 && !slices.Equal(a.Formats, projectconfig.DefaultFormats) {
		cfg.Output.Formats = a.Formats
	}
	return cfg
}

// RenderConfig renders answers as .pplstat.yaml content. The result is
// checked against the config schema before it is returned.
func RenderConfig(a Answers) ([]byte, error) {
	body, err := yaml.Marshal(BuildConfig(a))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	if errs := validation.ValidateConfigBytes(body); len(errs) > 0 {
		return nil, fmt.Errorf("generated config is invalid: %s", strings.Join(errs, "; "))
	}
	header := "# pplstat project configuration\n# Run `pplstat run` to write statistics for every input.\n"
	return append([]byte(header), body...), nil
}

func parseLimit(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("limit must be a non-negative integer")
	}
	return n, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
