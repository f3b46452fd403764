package models

import "fmt"

// DataError reports a sample that cannot be aggregated. Aggregation stops
// at the first DataError.
type DataError struct {
	Sample Sample
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("invalid %s: %s: %s", e.Sample.Ref(), e.Field, e.Reason)
}

// UndefinedStatisticError marks a statistic that has no value for its group.
// It is recorded on the summary row and never aborts aggregation.
type UndefinedStatisticError struct {
	Key       ConditionKey
	Metric    Metric
	Statistic string
	Reason    string
}

func (e *UndefinedStatisticError) Error() string {
	return fmt.Sprintf("%s: %s of %s undefined: %s", e.Key, e.Statistic, e.Metric, e.Reason)
}
