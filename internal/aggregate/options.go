package aggregate

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/xlingo-lab/pplstat/internal/models"
)

// Order controls the order of summary rows.
type Order string

const (
	// OrderInsertion keeps groups in order of the first sample seen for each key.
	OrderInsertion Order = "insertion"
	// OrderKey sorts groups by model, prompt language, then response language.
	OrderKey Order = "key"
)

// StdDevMode selects the standard deviation denominator.
type StdDevMode string

const (
	StdDevSample     StdDevMode = "sample"     // n-1
	StdDevPopulation StdDevMode = "population" // n
)

// SingleSamplePolicy decides how dispersion is reported for one-sample groups.
type SingleSamplePolicy string

const (
	SingleSampleUndefined SingleSamplePolicy = "undefined"
	SingleSampleZero      SingleSamplePolicy = "zero"
)

// Options configures Summarize.
type Options struct {
	Order        Order              `mapstructure:"order" yaml:"order,omitempty"`
	StdDev       StdDevMode         `mapstructure:"std_dev" yaml:"std_dev,omitempty"`
	SingleSample SingleSamplePolicy `mapstructure:"single_sample" yaml:"single_sample,omitempty"`
	// Languages is the set of accepted language codes; empty means models.DefaultLanguages.
	Languages []models.Language `mapstructure:"languages" yaml:"languages,omitempty"`
}

// DefaultOptions returns sample standard deviation, insertion order and
// undefined dispersion for single-sample groups.
func DefaultOptions() Options {
	return Options{
		Order:        OrderInsertion,
		StdDev:       StdDevSample,
		SingleSample: SingleSampleUndefined,
	}
}

// Validate rejects unknown option values. Empty values are treated as defaults.
func (o Options) Validate() error {
	switch o.Order {
	case "", OrderInsertion, OrderKey:
	default:
		return fmt.Errorf("invalid order %q: must be insertion or key", o.Order)
	}
	switch o.StdDev {
	case "", StdDevSample, StdDevPopulation:
	default:
		return fmt.Errorf("invalid std_dev %q: must be sample or population", o.StdDev)
	}
	switch o.SingleSample {
	case "", SingleSampleUndefined, SingleSampleZero:
	default:
		return fmt.Errorf("invalid single_sample %q: must be undefined or zero", o.SingleSample)
	}
	return nil
}

// DecodeOptions overlays raw (a config section or parsed --option flags) onto
// base. Unknown keys are an error. A comma-separated string is accepted for
// list values.
func DecodeOptions(base Options, raw map[string]any) (Options, error) {
	out := base
	if len(raw) == 0 {
		return out, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.DecodeHookFuncType(splitListHook),
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(raw); err != nil {
		return base, fmt.Errorf("decoding aggregation options: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// ParseOptionFlags turns "key=value" pairs into a map for DecodeOptions.
func ParseOptionFlags(pairs []string) (map[string]any, error) {
	raw := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q: want key=value", p)
		}
		raw[k] = strings.TrimSpace(v)
	}
	return raw, nil
}

func splitListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
		return data, nil
	}
	s := reflect.ValueOf(data).String()
	if s == "" {
		return []string{}, nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}
