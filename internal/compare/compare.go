// Package compare selects summary rows by partial condition key and turns
// them into ordered values for inequality checks between conditions.
package compare

import (
	"fmt"
	"strings"

	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/xlingo-lab/pplstat/internal/statistics"
)

// Filter matches condition keys; empty fields match anything.
type Filter struct {
	Model            string
	PromptLanguage   models.Language
	ResponseLanguage models.Language
}

// Match reports whether k satisfies every non-empty field of f.
func (f Filter) Match(k models.ConditionKey) bool {
	return (f.Model == "" || f.Model == k.Model) &&
		(f.PromptLanguage == "" || f.PromptLanguage == k.PromptLanguage) &&
		(f.ResponseLanguage == "" || f.ResponseLanguage == k.ResponseLanguage)
}

// Select returns the rows whose key matches f, in input order.
func Select(rows []models.SummaryRow, f Filter) []models.SummaryRow {
	var out []models.SummaryRow
	for _, r := range rows {
		if f.Match(r.Key) {
			out = append(out, r)
		}
	}
	return out
}

// Entry is one (key, metric, value) tuple.
type Entry struct {
	Key    models.ConditionKey `json:"key"`
	Metric models.Column       `json:"metric"`
	Value  models.Statistic    `json:"value"`
}

// Tuples flattens rows into entries, row by row, with the metrics of each
// row in the order given. No metrics means all report columns.
func Tuples(rows []models.SummaryRow, cols ...models.Column) []Entry {
	if len(cols) == 0 {
		cols = models.Columns
	}
	out := make([]Entry, 0, len(rows)*len(cols))
	for _, r := range rows {
		for _, c := range cols {
			out = append(out, Entry{Key: r.Key, Metric: c, Value: r.Value(c)})
		}
	}
	return out
}

// Op is an inequality operator.
type Op string

const (
	OpLess    Op = "<"
	OpGreater Op = ">"
)

// Assertion states that Metric of condition A relates to that of B by Op.
type Assertion struct {
	A      models.ConditionKey `json:"a"`
	B      models.ConditionKey `json:"b"`
	Metric models.Column       `json:"metric"`
	Op     Op                  `json:"op"`
}

func (a Assertion) String() string {
	return fmt.Sprintf("%s: %s %s %s", a.Metric, a.A, a.Op, a.B)
}

// ParseAssertion parses "[metric:] model/pl/rl < model/pl/rl" (or ">").
// defaultMetric is used when no metric prefix is given.
func ParseAssertion(s string, defaultMetric models.Column) (Assertion, error) {
	a := Assertion{Metric: defaultMetric}
	expr := s
	if m, rest, ok := strings.Cut(s, ":"); ok {
		col, err := models.ParseColumn(strings.TrimSpace(m))
		if err != nil {
			return Assertion{}, fmt.Errorf("assertion %q: %w", s, err)
		}
		a.Metric = col
		expr = rest
	}

	var lhs, rhs string
	switch {
	case strings.Contains(expr, string(OpLess)):
		a.Op = OpLess
		lhs, rhs, _ = strings.Cut(expr, string(OpLess))
	case strings.Contains(expr, string(OpGreater)):
		a.Op = OpGreater
		lhs, rhs, _ = strings.Cut(expr, string(OpGreater))
	default:
		return Assertion{}, fmt.Errorf("assertion %q: missing < or >", s)
	}

	var err error
	if a.A, err = models.ParseConditionKey(strings.TrimSpace(lhs)); err != nil {
		return Assertion{}, fmt.Errorf("assertion %q: %w", s, err)
	}
	if a.B, err = models.ParseConditionKey(strings.TrimSpace(rhs)); err != nil {
		return Assertion{}, fmt.Errorf("assertion %q: %w", s, err)
	}
	return a, nil
}

// CheckResult is the outcome of evaluating an Assertion.
type CheckResult struct {
	Assertion Assertion `json:"assertion"`
	A         float64   `json:"a"`
	B         float64   `json:"b"`
	Passed    bool      `json:"passed"`
}

func find(rows []models.SummaryRow, k models.ConditionKey) (models.SummaryRow, bool) {
	for _, r := range rows {
		if r.Key == k {
			return r, true
		}
	}
	return models.SummaryRow{}, false
}

func value(rows []models.SummaryRow, k models.ConditionKey, c models.Column) (float64, error) {
	r, ok := find(rows, k)
	if !ok {
		return 0, fmt.Errorf("condition %s not found", k)
	}
	st := r.Value(c)
	if !st.IsDefined() {
		return 0, st.Err
	}
	return st.Value, nil
}

// Check evaluates a against rows. It fails when either condition is missing
// or its value is undefined; a false inequality is reported through Passed.
func Check(rows []models.SummaryRow, a Assertion) (CheckResult, error) {
	va, err := value(rows, a.A, a.Metric)
	if err != nil {
		return CheckResult{}, err
	}
	vb, err := value(rows, a.B, a.Metric)
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{Assertion: a, A: va, B: vb}
	switch a.Op {
	case OpLess:
		res.Passed = va < vb
	case OpGreater:
		res.Passed = va > vb
	default:
		return CheckResult{}, fmt.Errorf("unknown operator %q", a.Op)
	}
	return res, nil
}

// Delta is a row's value relative to the first selected row.
type Delta struct {
	Key   models.ConditionKey `json:"key"`
	Value models.Statistic    `json:"value"`
	Delta models.Statistic    `json:"delta"`
}

// Deltas returns column c of each row and its difference from the first row.
// The delta is undefined whenever either value is.
func Deltas(rows []models.SummaryRow, c models.Column) []Delta {
	if len(rows) == 0 {
		return nil
	}
	base := rows[0].Value(c)
	out := make([]Delta, 0, len(rows))
	for _, r := range rows {
		v := r.Value(c)
		d := Delta{Key: r.Key, Value: v}
		switch {
		case !v.IsDefined():
			d.Delta = v
		case !base.IsDefined():
			d.Delta = base
		default:
			d.Delta = models.Defined(v.Value - base.Value)
		}
		out = append(out, d)
	}
	return out
}

// SignificanceResult is a bootstrap interval of mean(B) - mean(A) for one
// metric, with the intervals of each condition's mean.
type SignificanceResult struct {
	A           models.ConditionKey           `json:"a"`
	B           models.ConditionKey           `json:"b"`
	Metric      models.Metric                 `json:"metric"`
	CI          statistics.ConfidenceInterval `json:"ci"`
	MeanA       statistics.ConfidenceInterval `json:"mean_a"`
	MeanB       statistics.ConfidenceInterval `json:"mean_b"`
	Significant bool                          `json:"significant"`
}

// Significance bootstraps the difference of means of metric m between the
// samples of conditions a and b. A negative seed is non-deterministic.
func Significance(samples []models.Sample, a, b models.ConditionKey, m models.Metric, level float64, seed int64) (SignificanceResult, error) {
	var va, vb []float64
	for _, s := range samples {
		switch s.Key() {
		case a:
			va = append(va, s.Value(m))
		case b:
			vb = append(vb, s.Value(m))
		}
	}
	if len(va) == 0 {
		return SignificanceResult{}, fmt.Errorf("no samples for condition %s", a)
	}
	if len(vb) == 0 {
		return SignificanceResult{}, fmt.Errorf("no samples for condition %s", b)
	}

	ci := statistics.BootstrapDiffCI(va, vb, level, seed)
	return SignificanceResult{
		A:           a,
		B:           b,
		Metric:      m,
		CI:          ci,
		MeanA:       statistics.BootstrapCIWithSeed(va, level, seed),
		MeanB:       statistics.BootstrapCIWithSeed(vb, level, seed),
		Significant: statistics.IsSignificant(ci),
	}, nil
}
