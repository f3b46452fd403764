package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xlingo-lab/pplstat/internal/compare"
	"github.com/xlingo-lab/pplstat/internal/models"
	"github.com/xlingo-lab/pplstat/internal/reporting"
)

type compareFlags struct {
	in            inputFlags
	model         string
	promptLang    string
	responseLang  string
	metric        string
	assertions    []string
	format        string
	significance  bool
	confidence    float64
	bootstrapSeed int64
	junitPath     string
}

func newCompareCommand() *cobra.Command {
	var f compareFlags

	cmd := &cobra.Command{
		Use:   "compare <input> [input ...]",
		Short: "Compare conditions on one statistic",
		Long: `Compare per-condition statistics side by side.

Conditions are selected with --model, --prompt-lang and --response-lang
(unset filters match everything). Each selected condition is listed with its
value of --metric and the difference from the first selected condition.

--assert checks an inequality between two conditions, written as
"[metric:] model/prompt_lang/response_lang < model/prompt_lang/response_lang".
Assertions see every condition, not only the selected ones. The command exits
with status 1 when an assertion does not hold. With --significance each
assertion on a mean also reports a bootstrap confidence interval of the
difference of means.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error {
			return compareCommandE(cmd, args, &f)
		},
	}

	f.in.register(cmd)
	cmd.Flags().StringVar(&f.model, "model", "", "Only conditions of this model")
	cmd.Flags().StringVar(&f.promptLang, "prompt-lang", "", "Only conditions with this prompt language")
	cmd.Flags().StringVar(&f.responseLang, "response-lang", "", "Only conditions with this response language")
	cmd.Flags().StringVar(&f.metric, "metric", string(models.ColumnAveragePerplexity), "Statistic to compare, e.g. average_loss or cv_perplexity")
	cmd.Flags().StringArrayVar(&f.assertions, "assert", nil, `Inequality that must hold, e.g. "llama/en/en < llama/zh/zh" (can be repeated)`)
	cmd.Flags().StringVarP(&f.format, "format", "f", "table", "Output format: table or json")
	cmd.Flags().BoolVar(&f.significance, "significance", false, "Bootstrap a confidence interval for each assertion on a mean")
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "Confidence level of bootstrap intervals (default: from config, 0.95)")
	cmd.Flags().Int64Var(&f.bootstrapSeed, "bootstrap-seed", 0, "Seed for bootstrap resampling, negative for random (default: from config, 42)")
	cmd.Flags().StringVar(&f.junitPath, "junit", "", "Write assertion results as JUnit XML to this file")

	return cmd
}

// checkReport is one evaluated assertion.
type checkReport struct {
	Assertion    string                      `json:"assertion"`
	A            *float64                    `json:"a,omitempty"`
	B            *float64                    `json:"b,omitempty"`
	Passed       bool                        `json:"passed"`
	Error        string                      `json:"error,omitempty"`
	Significance *compare.SignificanceResult `json:"significance,omitempty"`
}

// comparisonReport is the full comparison output.
type comparisonReport struct {
	RunID  string          `json:"run_id"`
	Metric models.Column   `json:"metric"`
	Tuples []compare.Entry `json:"tuples"`
	Deltas []compare.Delta `json:"deltas"`
	Checks []checkReport   `json:"checks,omitempty"`
}

func compareCommandE(cmd *cobra.Command, args []string, f *compareFlags) error {
	if f.format != "table" && f.format != "json" {
		return fmt.Errorf("unsupported format %q: must be table or json", f.format)
	}
	col, err := models.ParseColumn(f.metric)
	if err != nil {
		return err
	}
	assertions := make([]compare.Assertion, 0, len(f.assertions))
	for _, s := range f.assertions {
		a, err := compare.ParseAssertion(s, col)
		if err != nil {
			return err
		}
		assertions = append(assertions, a)
	}

	cfg, err := f.in.loadConfig()
	if err != nil {
		return err
	}
	ds, agg, err := f.in.resolve(cmd, cfg)
	if err != nil {
		return err
	}
	level := cfg.Compare.ConfidenceLevel
	if cmd.Flags().Changed("confidence") {
		if f.confidence <= 0 || f.confidence >= 1 {
			return fmt.Errorf("--confidence must be between 0 and 1, got %v", f.confidence)
		}
		level = f.confidence
	}
	seed := cfg.SeedValue()
	if cmd.Flags().Changed("bootstrap-seed") {
		seed = f.bootstrapSeed
	}

	samples, rows, err := summarizeInputs(cmd.Context(), args, ds, agg)
	if err != nil {
		return err
	}

	filter := compare.Filter{
		Model:            f.model,
		PromptLanguage:   models.Language(f.promptLang),
		ResponseLanguage: models.Language(f.responseLang),
	}
	selected := compare.Select(rows, filter)
	if len(selected) == 0 && len(assertions) == 0 {
		return fmt.Errorf("no conditions match the given filters")
	}

	report := &comparisonReport{
		RunID:  newRunID(),
		Metric: col,
		Tuples: compare.Tuples(selected, col),
		Deltas: compare.Deltas(selected, col),
	}

	var (
		outcomes        []reporting.CheckOutcome
		failed, errored int
	)
	for _, a := range assertions {
		res, err := compare.Check(rows, a)
		outcomes = append(outcomes, reporting.CheckOutcome{Assertion: a, Result: res, Err: err})

		cr := checkReport{Assertion: a.String()}
		switch {
		case err != nil:
			errored++
			cr.Error = err.Error()
		default:
			cr.A, cr.B, cr.Passed = &res.A, &res.B, res.Passed
			if !res.Passed {
				failed++
			}
			if f.significance && a.Metric.IsMean() {
				sig, err := compare.Significance(samples, a.A, a.B, a.Metric.Metric(), level, seed)
				if err != nil {
					return err
				}
				cr.Significance = &sig
			}
		}
		slog.Debug("assertion evaluated", "assertion", a.String(), "passed", cr.Passed, "error", cr.Error)
		report.Checks = append(report.Checks, cr)
	}

	out := cmd.OutOrStdout()
	if f.format == "json" {
		if err := printComparisonJSON(out, report); err != nil {
			return err
		}
	} else {
		printComparisonTable(out, report)
	}

	if f.junitPath != "" && len(outcomes) > 0 {
		props := map[string]string{"metric": string(col), "run_id": report.RunID}
		suites := reporting.ConvertChecksToJUnit("pplstat compare", outcomes, time.Now(), props)
		if err := reporting.WriteJUnitXML(suites, f.junitPath); err != nil {
			return fmt.Errorf("failed to write JUnit report: %w", err)
		}
	}

	if errored > 0 {
		return fmt.Errorf("%d assertion(s) could not be evaluated", errored)
	}
	if failed > 0 {
		return &ComparisonFailedError{Failed: failed, Total: len(assertions)}
	}
	return nil
}

func formatValue(col models.Column, st models.Statistic) string {
	return reporting.FormatStatistic(st, col.IsPercent())
}

func printComparisonTable(w io.Writer, r *comparisonReport) {
	// Header
	fmt.Fprintln(w, strings.Repeat("=", 70))              //nolint:errcheck
	fmt.Fprintf(w, " COMPARISON REPORT (%s)\n", r.Metric) //nolint:errcheck
	fmt.Fprintln(w, strings.Repeat("=", 70))              //nolint:errcheck

	fmt.Fprintf(w, "  %-32s  %-12s  %s\n", "Condition", "Value", "Delta") //nolint:errcheck
	for i, d := range r.Deltas {
		delta := "-"
		if i > 0 {
			delta = formatValue(r.Metric, d.Delta)
			if d.Delta.IsDefined() {
				switch {
				case d.Delta.Value > 0:
					delta = "↑+" + delta
				case d.Delta.Value < 0:
					delta = "↓" + delta
				}
			}
		}
		fmt.Fprintf(w, "  %-32s  %-12s  %s\n", d.Key, formatValue(r.Metric, d.Value), delta) //nolint:errcheck
	}

	if len(r.Checks) == 0 {
		return
	}
	fmt.Fprintln(w)                          //nolint:errcheck
	fmt.Fprintln(w, strings.Repeat("-", 70)) //nolint:errcheck
	fmt.Fprintln(w, " ASSERTIONS")           //nolint:errcheck
	fmt.Fprintln(w, strings.Repeat("-", 70)) //nolint:errcheck
	for _, c := range r.Checks {
		switch {
		case c.Error != "":
			fmt.Fprintf(w, "  ERROR  %s: %s\n", c.Assertion, c.Error) //nolint:errcheck
			continue
		case c.Passed:
			fmt.Fprintf(w, "  PASS   %s (%s vs %s)\n", c.Assertion, reporting.FormatNumber(*c.A), reporting.FormatNumber(*c.B)) //nolint:errcheck
		default:
			fmt.Fprintf(w, "  FAIL   %s (%s vs %s)\n", c.Assertion, reporting.FormatNumber(*c.A), reporting.FormatNumber(*c.B)) //nolint:errcheck
		}
		if s := c.Significance; s != nil {
			verdict := "not significant"
			if s.Significant {
				verdict = "significant"
			}
			fmt.Fprintf(w, "         mean diff %s, %.0f%% CI [%s, %s], %s\n", //nolint:errcheck
				reporting.FormatNumber(s.CI.Mean), s.CI.ConfidenceLevel*100,
				reporting.FormatNumber(s.CI.Lower), reporting.FormatNumber(s.CI.Upper), verdict)
		}
	}
}

func printComparisonJSON(w io.Writer, r *comparisonReport) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal comparison report: %w", err)
	}
	fmt.Fprintln(w, string(data)) //nolint:errcheck
	return nil
}
