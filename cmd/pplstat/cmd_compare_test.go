package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Argument validation
// ---------------------------------------------------------------------------

func TestCompareCommand_RequiresInput(t *testing.T) {
	_, err := runCommand(t, newCompareCommand())
	assert.Error(t, err)
}

func TestCompareCommand_InvalidFlags(t *testing.T) {
	dir, cfg := fixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"format", []string{"--format", "xml"}, "unsupported format"},
		{"metric", []string{"--metric", "median_loss"}, "unknown metric"},
		{"assertion", []string{"--assert", "llama/en/en = llama/zh/zh"}, "missing < or >"},
		{"confidence", []string{"--confidence", "1.5"}, "--confidence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{dir, "--config", cfg}, tt.args...)
			_, err := runCommand(t, newCompareCommand(), args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompareCommand_MissingInput(t *testing.T) {
	_, cfg := fixture(t)

	_, err := runCommand(t, newCompareCommand(), "/nonexistent/llama_results", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading inputs")
}

// ---------------------------------------------------------------------------
// Table output
// ---------------------------------------------------------------------------

func TestCompareCommand_TableOutput(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg)
	require.NoError(t, err)

	assert.Contains(t, out, "COMPARISON REPORT (average_perplexity)")
	assert.Contains(t, out, "llama/en/en")
	assert.Contains(t, out, "llama/zh/zh")
	assert.Contains(t, out, "↑+4.0")
	assert.NotContains(t, out, "ASSERTIONS")
}

func TestCompareCommand_Filter(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg, "--prompt-lang", "zh", "--format", "json")
	require.NoError(t, err)

	var report comparisonReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Deltas, 1)
	assert.Equal(t, "llama/zh/zh", report.Deltas[0].Key.String())

	_, err = runCommand(t, newCompareCommand(), dir, "--config", cfg, "--model", "qwen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conditions match")
}

// ---------------------------------------------------------------------------
// Assertions
// ---------------------------------------------------------------------------

func TestCompareCommand_AssertionPasses(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg,
		"--assert", "llama/en/en < llama/zh/zh",
		"--assert", "average_loss: llama/zh/zh > llama/en/en")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS   average_perplexity: llama/en/en < llama/zh/zh (5.0 vs 9.0)")
	assert.Contains(t, out, "PASS   average_loss: llama/zh/zh > llama/en/en")
}

func TestCompareCommand_AssertionFails(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg,
		"--assert", "llama/en/en > llama/zh/zh",
		"--assert", "llama/en/en < llama/zh/zh")

	var failedErr *ComparisonFailedError
	require.True(t, errors.As(err, &failedErr), "got %v", err)
	assert.Equal(t, 1, failedErr.Failed)
	assert.Equal(t, 2, failedErr.Total)
	assert.Contains(t, out, "FAIL   average_perplexity: llama/en/en > llama/zh/zh")
}

func TestCompareCommand_AssertionUnknownCondition(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg, "--assert", "llama/en/en < qwen/en/en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not be evaluated")

	var failedErr *ComparisonFailedError
	assert.False(t, errors.As(err, &failedErr))
	assert.Contains(t, out, "ERROR  average_perplexity: llama/en/en < qwen/en/en")
}

func TestCompareCommand_SignificanceJSON(t *testing.T) {
	dir, cfg := fixture(t)

	out, err := runCommand(t, newCompareCommand(), dir, "--config", cfg,
		"--format", "json", "--significance", "--bootstrap-seed", "7",
		"--assert", "llama/en/en < llama/zh/zh",
		"--assert", "cv_loss: llama/en/en > llama/zh/zh")
	// the cv assertion may go either way; only the report shape matters here
	if err != nil {
		var failedErr *ComparisonFailedError
		require.True(t, errors.As(err, &failedErr), "got %v", err)
	}

	var report comparisonReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, report.Tuples, 2)
	require.Len(t, report.Checks, 2)

	sig := report.Checks[0].Significance
	require.NotNil(t, sig)
	assert.InDelta(t, 4.0, sig.CI.Mean, 1e-9)
	assert.LessOrEqual(t, sig.CI.Lower, sig.CI.Upper)
	assert.Equal(t, 0.95, sig.CI.ConfidenceLevel)

	// no interval for dispersion statistics
	assert.Nil(t, report.Checks[1].Significance)
}

func TestCompareCommand_JUnit(t *testing.T) {
	dir, cfg := fixture(t)
	junit := filepath.Join(t.TempDir(), "compare.xml")

	_, err := runCommand(t, newCompareCommand(), dir, "--config", cfg,
		"--junit", junit,
		"--assert", "llama/en/en < llama/zh/zh",
		"--assert", "llama/en/en > llama/zh/zh")
	require.Error(t, err)

	data, err := os.ReadFile(junit)
	require.NoError(t, err)
	xml := string(data)
	assert.True(t, strings.HasPrefix(xml, "<?xml"))
	assert.Contains(t, xml, `tests="2" failures="1" errors="0"`)
	assert.Contains(t, xml, `name="metric" value="average_perplexity"`)
	assert.Contains(t, xml, "InequalityFailure")
}
