package reporting

import (
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlingo-lab/pplstat/internal/compare"
	"github.com/xlingo-lab/pplstat/internal/models"
)

func newCheckOutcomes() []CheckOutcome {
	enEN := models.ConditionKey{Model: "llama", PromptLanguage: "en", ResponseLanguage: "en"}
	zhEN := models.ConditionKey{Model: "llama", PromptLanguage: "zh", ResponseLanguage: "en"}
	less := compare.Assertion{A: enEN, B: zhEN, Metric: models.ColumnAveragePerplexity, Op: compare.OpLess}
	greater := compare.Assertion{A: enEN, B: zhEN, Metric: models.ColumnAverageLoss, Op: compare.OpGreater}
	missing := compare.Assertion{A: enEN, B: models.ConditionKey{Model: "gpt", PromptLanguage: "en", ResponseLanguage: "en"}, Metric: models.ColumnCVLoss, Op: compare.OpLess}

	return []CheckOutcome{
		{Assertion: less, Result: compare.CheckResult{Assertion: less, A: 4.05, B: 6.075, Passed: true}},
		{Assertion: greater, Result: compare.CheckResult{Assertion: greater, A: 1.395, B: 1.8025, Passed: false}},
		{Assertion: missing, Err: errors.New("condition gpt/en/en not found")},
	}
}

func TestConvertChecksToJUnit_Structure(t *testing.T) {
	ts := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	suites := ConvertChecksToJUnit("llama comparisons", newCheckOutcomes(), ts, map[string]string{"model": "llama", "inputs": "2"})

	assert.Equal(t, 3, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	assert.Equal(t, 1, suites.Errors)

	require.Len(t, suites.TestSuites, 1)
	suite := suites.TestSuites[0]
	assert.Equal(t, "llama comparisons", suite.Name)
	assert.Equal(t, "2025-06-15T12:00:00Z", suite.Timestamp)
	require.Len(t, suite.Properties, 2)
	assert.Equal(t, "inputs", suite.Properties[0].Name)
	assert.Equal(t, "model", suite.Properties[1].Name)
	require.Len(t, suite.TestCases, 3)
}

func TestConvertChecksToJUnit_Cases(t *testing.T) {
	suites := ConvertChecksToJUnit("s", newCheckOutcomes(), time.Now(), nil)
	cases := suites.TestSuites[0].TestCases

	passed := cases[0]
	assert.Equal(t, "average_perplexity: llama/en/en < llama/zh/en", passed.Name)
	assert.Equal(t, "average_perplexity", passed.Classname)
	assert.Nil(t, passed.Failure)
	assert.Nil(t, passed.Error)

	failed := cases[1]
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "InequalityFailure", failed.Failure.Type)
	assert.Contains(t, failed.Failure.Message, "1.395 > 1.8025")
	assert.Contains(t, failed.Failure.Body, "llama/zh/en = 1.8025")

	errored := cases[2]
	assert.Nil(t, errored.Failure)
	require.NotNil(t, errored.Error)
	assert.Equal(t, "EvaluationError", errored.Error.Type)
	assert.Contains(t, errored.Error.Message, "not found")
}

func TestWriteJUnitXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checks.xml")

	suites := ConvertChecksToJUnit("s", newCheckOutcomes(), time.Now(), nil)
	require.NoError(t, WriteJUnitXML(suites, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var parsed JUnitTestSuites
	require.NoError(t, xml.Unmarshal(data, &parsed))
	assert.Equal(t, 3, parsed.Tests)
	require.Len(t, parsed.TestSuites, 1)
	assert.Len(t, parsed.TestSuites[0].TestCases, 3)
}
