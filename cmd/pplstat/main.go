package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess          = 0 // Statistics written, all assertions held
	ExitComparisonFailed = 1 // One or more --assert inequalities did not hold
	ExitError            = 2 // Configuration, data or runtime error
)

// ComparisonFailedError indicates that the comparison ran successfully,
// but one or more asserted inequalities did not hold.
type ComparisonFailedError struct {
	Failed int
	Total  int
}

func (e *ComparisonFailedError) Error() string {
	return fmt.Sprintf("%d of %d assertion(s) failed", e.Failed, e.Total)
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var failedErr *ComparisonFailedError
		if errors.As(err, &failedErr) {
			os.Exit(ExitComparisonFailed)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
