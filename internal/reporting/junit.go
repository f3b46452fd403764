package reporting

import (
	"encoding/xml"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/xlingo-lab/pplstat/internal/compare"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one compare invocation.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one assertion.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents an inequality that did not hold.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an assertion that could not be evaluated.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// CheckOutcome pairs an assertion with its result or evaluation error.
type CheckOutcome struct {
	Assertion compare.Assertion
	Result    compare.CheckResult
	Err       error
}

// ConvertChecksToJUnit converts assertion outcomes to JUnit XML types.
func ConvertChecksToJUnit(suiteName string, outcomes []CheckOutcome, ts time.Time, props map[string]string) *JUnitTestSuites {
	suite := JUnitTestSuite{
		Name:      suiteName,
		Tests:     len(outcomes),
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
	for _, name := range slices.Sorted(maps.Keys(props)) {
		suite.Properties = append(suite.Properties, JUnitProperty{Name: name, Value: props[name]})
	}

	for _, o := range outcomes {
		tc := JUnitTestCase{
			Name:      o.Assertion.String(),
			Classname: string(o.Assertion.Metric),
		}
		switch {
		case o.Err != nil:
			suite.Errors++
			tc.Error = &JUnitError{Message: o.Err.Error(), Type: "EvaluationError"}
		case !o.Result.Passed:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s: %s %s %s does not hold", o.Assertion.Metric,
					FormatNumber(o.Result.A), o.Assertion.Op, FormatNumber(o.Result.B)),
				Type: "InequalityFailure",
				Body: fmt.Sprintf("%s = %v\n%s = %v\n", o.Assertion.A, o.Result.A, o.Assertion.B, o.Result.B),
			}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(suites *JUnitTestSuites, path string) error {
	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
