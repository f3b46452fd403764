// Package aggregate groups scored samples by condition and computes the
// descriptive statistics reported for each condition.
package aggregate

import (
	"fmt"
	"slices"

	"github.com/xlingo-lab/pplstat/internal/metrics"
	"github.com/xlingo-lab/pplstat/internal/models"
)

type group struct {
	key    models.ConditionKey
	source string
	file   string
	values map[models.Metric][]float64
}

// Summarize returns one SummaryRow per distinct condition key in samples.
//
// Every sample is validated before any statistic is computed; the first
// invalid sample fails the whole call with a *models.DataError and no rows.
// Statistics that have no value (dispersion of a single sample, CV of a zero
// mean) are flagged on the row instead of failing the call.
func Summarize(samples []models.Sample, opts Options) ([]models.SummaryRow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	for _, s := range samples {
		if err := checkSample(s, opts.Languages); err != nil {
			return nil, err
		}
	}

	index := make(map[models.ConditionKey]int)
	var groups []*group
	for _, s := range samples {
		key := s.Key()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, &group{
				key:    key,
				source: s.Source,
				file:   s.File,
				values: make(map[models.Metric][]float64, len(models.Metrics)),
			})
		}
		g := groups[i]
		for _, m := range models.Metrics {
			g.values[m] = append(g.values[m], s.Value(m))
		}
	}

	rows := make([]models.SummaryRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, models.SummaryRow{
			Key:        g.key,
			Source:     g.source,
			File:       g.file,
			Count:      len(g.values[models.MetricPerplexity]),
			Perplexity: summarizeMetric(g.key, models.MetricPerplexity, g.values[models.MetricPerplexity], opts),
			Loss:       summarizeMetric(g.key, models.MetricLoss, g.values[models.MetricLoss], opts),
		})
	}

	if opts.Order == OrderKey {
		slices.SortStableFunc(rows, func(a, b models.SummaryRow) int {
			return a.Key.Compare(b.Key)
		})
	}
	return rows, nil
}

func summarizeMetric(key models.ConditionKey, m models.Metric, values []float64, opts Options) models.MetricSummary {
	mean := metrics.Mean(values)
	ms := models.MetricSummary{Mean: mean}

	if len(values) < 2 {
		if opts.SingleSample == SingleSampleZero {
			ms.StdDev = models.Defined(0)
			ms.CV = models.Defined(0)
			return ms
		}
		ms.StdDev = models.Undefined(&models.UndefinedStatisticError{
			Key: key, Metric: m, Statistic: models.StatisticStdDev, Reason: "group has a single sample",
		})
		ms.CV = models.Undefined(&models.UndefinedStatisticError{
			Key: key, Metric: m, Statistic: models.StatisticCV, Reason: "group has a single sample",
		})
		return ms
	}

	var std float64
	if opts.StdDev == StdDevPopulation {
		std = metrics.StdDev(values)
	} else {
		std, _ = metrics.SampleStdDev(values)
	}
	ms.StdDev = models.Defined(std)

	if cv, ok := metrics.CoefficientOfVariation(std, mean); ok {
		ms.CV = models.Defined(cv)
	} else {
		ms.CV = models.Undefined(&models.UndefinedStatisticError{
			Key: key, Metric: m, Statistic: models.StatisticCV, Reason: "mean is zero",
		})
	}
	return ms
}

func checkSample(s models.Sample, languages []models.Language) error {
	if s.Model == "" {
		return &models.DataError{Sample: s, Field: "model", Reason: "missing"}
	}
	if err := s.PromptLanguage.Validate(languages); err != nil {
		return &models.DataError{Sample: s, Field: "prompt_language", Reason: err.Error()}
	}
	if err := s.ResponseLanguage.Validate(languages); err != nil {
		return &models.DataError{Sample: s, Field: "response_language", Reason: err.Error()}
	}
	if !metrics.IsFinite(s.Perplexity) {
		return &models.DataError{Sample: s, Field: "perplexity", Reason: fmt.Sprintf("non-finite value %v", s.Perplexity)}
	}
	if s.Perplexity <= 0 {
		return &models.DataError{Sample: s, Field: "perplexity", Reason: fmt.Sprintf("must be positive, got %v", s.Perplexity)}
	}
	if !metrics.IsFinite(s.Loss) {
		return &models.DataError{Sample: s, Field: "loss", Reason: fmt.Sprintf("non-finite value %v", s.Loss)}
	}
	if s.Loss < 0 {
		return &models.DataError{Sample: s, Field: "loss", Reason: fmt.Sprintf("must be non-negative, got %v", s.Loss)}
	}
	return nil
}

// Undefined collects every statistic flagged as undefined across rows, in row order.
func Undefined(rows []models.SummaryRow) []*models.UndefinedStatisticError {
	var out []*models.UndefinedStatisticError
	for _, r := range rows {
		for _, m := range models.Metrics {
			ms := r.Metric(m)
			for _, st := range []models.Statistic{ms.StdDev, ms.CV} {
				if !st.IsDefined() {
					out = append(out, st.Err)
				}
			}
		}
	}
	return out
}
