// Package projectconfig provides the ProjectConfig struct and loader for
// .pplstat.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/aggregate"
	"github.com/xlingo-lab/pplstat/internal/dataset"
	"github.com/xlingo-lab/pplstat/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Load.
const FileName = ".pplstat.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultLimit     = 1000
	DefaultWorkers   = 4
	DefaultOutputDir = "results/"

	DefaultConfidenceLevel = 0.95
	DefaultSeed            = 42

	// OutputSuffix is appended to an input's name to form its report file names.
	OutputSuffix = "_perplexity_loss_statistics"
)

// DefaultFormats are the report formats written by `run` when none are configured.
var DefaultFormats = []string{"csv", "json"}

// InputConfig names one input and, optionally, where its reports go.
type InputConfig struct {
	Path string `yaml:"path"`
	Name string `yaml:"name,omitempty"`
	CSV  string `yaml:"csv,omitempty"`
	JSON string `yaml:"json,omitempty"`
}

// DatasetConfig holds loader settings.
type DatasetConfig struct {
	Limit   *int `yaml:"limit,omitempty"`
	Workers int  `yaml:"workers,omitempty"`
}

// OutputConfig holds report destinations.
type OutputConfig struct {
	Dir     string   `yaml:"dir,omitempty"`
	Formats []string `yaml:"formats,omitempty"`
}

// CompareConfig holds settings for bootstrap significance tests.
type CompareConfig struct {
	ConfidenceLevel float64 `yaml:"confidence_level,omitempty"`
	Seed            *int64  `yaml:"seed,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .pplstat.yaml.
type ProjectConfig struct {
	Inputs    []InputConfig  `yaml:"inputs,omitempty"`
	Dataset   DatasetConfig  `yaml:"dataset,omitempty"`
	Aggregate map[string]any `yaml:"aggregate,omitempty"`
	Output    OutputConfig   `yaml:"output,omitempty"`
	Compare   CompareConfig  `yaml:"compare,omitempty"`

	// Dir is the directory of the loaded file; relative paths resolve
	// against it. Empty when no file was found.
	Dir string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Dataset: DatasetConfig{
			Limit:   intPtr(DefaultLimit),
			Workers: DefaultWorkers,
		},
		Aggregate: map[string]any{},
		Output: OutputConfig{
			Dir:     DefaultOutputDir,
			Formats: append([]string(nil), DefaultFormats...),
		},
		Compare: CompareConfig{
			ConfidenceLevel: DefaultConfidenceLevel,
			Seed:            int64Ptr(DefaultSeed),
		},
	}
}

// SchemaError reports a config file that does not match the config schema.
type SchemaError struct {
	Path   string
	Errors []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s is invalid:\n  %s", e.Path, strings.Join(e.Errors, "\n  "))
}

// Load finds .pplstat.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}
	return parse(path, data)
}

// LoadFile reads the config at path without walking up.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", path, err)
	}
	return parse(abs, data)
}

func parse(path string, data []byte) (*ProjectConfig, error) {
	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, &SchemaError{Path: path, Errors: errs}
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg := New()
	mergeConfig(cfg, &fileCfg)
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .pplstat.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found. Propagates real I/O
// errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) (string, []byte, error) {
	// Convert to absolute path so filepath.Dir(".") walks correctly.
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if len(src.Inputs) > 0 {
		dst.Inputs = src.Inputs
	}

	// Dataset
	if src.Dataset.Limit != nil {
		dst.Dataset.Limit = src.Dataset.Limit
	}
	if src.Dataset.Workers != 0 {
		dst.Dataset.Workers = src.Dataset.Workers
	}

	for k, v := range src.Aggregate {
		dst.Aggregate[k] = v
	}

	// Output
	if src.Output.Dir != "" {
		dst.Output.Dir = src.Output.Dir
	}
	if len(src.Output.Formats) > 0 {
		dst.Output.Formats = src.Output.Formats
	}

	// Compare
	if src.Compare.ConfidenceLevel != 0 {
		dst.Compare.ConfidenceLevel = src.Compare.ConfidenceLevel
	}
	if src.Compare.Seed != nil {
		dst.Compare.Seed = src.Compare.Seed
	}
}

// Resolve makes p absolute relative to the config file's directory.
func (c *ProjectConfig) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// DatasetOptions returns the loader options.
func (c *ProjectConfig) DatasetOptions() dataset.Options {
	opts := dataset.Options{Workers: c.Dataset.Workers}
	if c.Dataset.Limit != nil {
		opts.Limit = *c.Dataset.Limit
	}
	return opts
}

// AggregateOptions decodes the aggregate section over the defaults.
func (c *ProjectConfig) AggregateOptions() (aggregate.Options, error) {
	opts, err := aggregate.DecodeOptions(aggregate.DefaultOptions(), c.Aggregate)
	if err != nil {
		return aggregate.Options{}, fmt.Errorf("aggregate section: %w", err)
	}
	return opts, nil
}

// SeedValue returns the bootstrap seed.
func (c *ProjectConfig) SeedValue() int64 {
	if c.Compare.Seed == nil {
		return DefaultSeed
	}
	return *c.Compare.Seed
}

// OutputName is the base name of an input's report files: the configured
// name, else the model id derived from the input path.
func (in InputConfig) OutputName() string {
	if in.Name != "" {
		return in.Name
	}
	base := filepath.Base(filepath.Clean(in.Path))
	if dataset.IsCSV(base) {
		base = strings.TrimSuffix(base, filepath.Ext(base))
		base = strings.TrimSuffix(base, ".csv")
		return base
	}
	return dataset.ModelFromDir(base)
}

// OutputPath returns where the report of in in the given format goes.
// Explicit csv/json paths win; everything else lands in Output.Dir as
// "<name>_perplexity_loss_statistics.<ext>".
func (c *ProjectConfig) OutputPath(in InputConfig, format, ext string) string {
	switch {
	case format == "csv" && in.CSV != "":
		return c.Resolve(in.CSV)
	case format == "json" && in.JSON != "":
		return c.Resolve(in.JSON)
	}
	return filepath.Join(c.Resolve(c.Output.Dir), in.OutputName()+OutputSuffix+ext)
}

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
