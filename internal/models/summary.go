package models

import (
	"encoding/json"
	"fmt"
)

// Metric names a per-sample measurement.
type Metric string

const (
	MetricPerplexity Metric = "perplexity"
	MetricLoss       Metric = "loss"
)

// Metrics lists the measurements in report order.
var Metrics = []Metric{MetricPerplexity, MetricLoss}

// Value returns the measurement m of the sample.
func (s Sample) Value(m Metric) float64 {
	if m == MetricLoss {
		return s.Loss
	}
	return s.Perplexity
}

// Statistic is a derived value that may be undefined for its group.
type Statistic struct {
	Value float64
	Err   *UndefinedStatisticError
}

// Defined wraps a computed value.
func Defined(v float64) Statistic { return Statistic{Value: v} }

// Undefined marks a statistic with the reason it has no value.
func Undefined(err *UndefinedStatisticError) Statistic { return Statistic{Err: err} }

// IsDefined reports whether the statistic carries a value.
func (s Statistic) IsDefined() bool { return s.Err == nil }

func (s Statistic) MarshalJSON() ([]byte, error) {
	if !s.IsDefined() {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON reads a number, or null as an undefined statistic whose
// reason is no longer known.
func (s *Statistic) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Undefined(&UndefinedStatisticError{Reason: "undefined"})
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Defined(v)
	return nil
}

// Names of the statistics that can be undefined.
const (
	StatisticStdDev = "std_dev"
	StatisticCV     = "cv"
)

// MetricSummary holds the descriptive statistics of one metric for one group.
type MetricSummary struct {
	Mean   float64   `json:"mean"`
	StdDev Statistic `json:"std_dev"`
	CV     Statistic `json:"cv_percent"`
}

// SummaryRow is the aggregate of all samples sharing a condition key.
type SummaryRow struct {
	Key        ConditionKey  `json:"key"`
	Source     string        `json:"source,omitempty"`
	File       string        `json:"file,omitempty"`
	Count      int           `json:"count"`
	Perplexity MetricSummary `json:"perplexity"`
	Loss       MetricSummary `json:"loss"`
}

type summaryRowJSON SummaryRow

// UnmarshalJSON restores the condition, metric and statistic name of every
// undefined statistic, which the JSON form encodes as a bare null.
func (r *SummaryRow) UnmarshalJSON(data []byte) error {
	var raw summaryRowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = SummaryRow(raw)
	r.Perplexity.label(r.Key, MetricPerplexity)
	r.Loss.label(r.Key, MetricLoss)
	return nil
}

func (ms *MetricSummary) label(key ConditionKey, m Metric) {
	if e := ms.StdDev.Err; e != nil {
		e.Key, e.Metric, e.Statistic = key, m, StatisticStdDev
	}
	if e := ms.CV.Err; e != nil {
		e.Key, e.Metric, e.Statistic = key, m, StatisticCV
	}
}

// Metric returns the summary for m.
func (r SummaryRow) Metric(m Metric) MetricSummary {
	if m == MetricLoss {
		return r.Loss
	}
	return r.Perplexity
}

// Group is the report's input_folder value: the sample source, or the model
// when the samples carried no source.
func (r SummaryRow) Group() string {
	if r.Source != "" {
		return r.Source
	}
	return r.Key.Model
}

// Label is the report's file value: the sample file, or a label built from
// the condition languages in the scoring pipeline's naming scheme.
func (r SummaryRow) Label() string {
	if r.File != "" {
		return r.File
	}
	return fmt.Sprintf("prompt_%s_response_%s", r.Key.PromptLanguage, r.Key.ResponseLanguage)
}

// Column is a report column holding a statistic.
type Column string

const (
	ColumnAveragePerplexity Column = "average_perplexity"
	ColumnStdDevPerplexity  Column = "std_dev_perplexity"
	ColumnCVPerplexity      Column = "cv_perplexity"
	ColumnAverageLoss       Column = "average_loss"
	ColumnStdDevLoss        Column = "std_dev_loss"
	ColumnCVLoss            Column = "cv_loss"
)

// Columns lists the statistic columns in report order.
var Columns = []Column{
	ColumnAveragePerplexity, ColumnStdDevPerplexity, ColumnCVPerplexity,
	ColumnAverageLoss, ColumnStdDevLoss, ColumnCVLoss,
}

// ParseColumn accepts a column name.
func ParseColumn(s string) (Column, error) {
	for _, c := range Columns {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// IsPercent reports whether the column is a coefficient of variation.
func (c Column) IsPercent() bool {
	return c == ColumnCVPerplexity || c == ColumnCVLoss
}

// Metric returns the metric the column summarizes.
func (c Column) Metric() Metric {
	switch c {
	case ColumnAverageLoss, ColumnStdDevLoss, ColumnCVLoss:
		return MetricLoss
	}
	return MetricPerplexity
}

// IsMean reports whether the column is a metric average.
func (c Column) IsMean() bool {
	return c == ColumnAveragePerplexity || c == ColumnAverageLoss
}

// Value returns the statistic stored in column c of the row.
func (r SummaryRow) Value(c Column) Statistic {
	switch c {
	case ColumnAveragePerplexity:
		return Defined(r.Perplexity.Mean)
	case ColumnStdDevPerplexity:
		return r.Perplexity.StdDev
	case ColumnCVPerplexity:
		return r.Perplexity.CV
	case ColumnAverageLoss:
		return Defined(r.Loss.Mean)
	case ColumnStdDevLoss:
		return r.Loss.StdDev
	case ColumnCVLoss:
		return r.Loss.CV
	}
	return Undefined(&UndefinedStatisticError{Key: r.Key, Statistic: string(c), Reason: "unknown column"})
}
