package metrics

import "math"

// Mean computes the arithmetic mean of a float64 slice.
// Returns 0 for empty input.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sumSquares(values []float64) float64 {
	m := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return sumSq
}

// Variance computes the population variance of a float64 slice.
// Returns 0 for empty input.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sumSquares(values) / float64(len(values))
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// SampleVariance computes the variance with Bessel's correction (n-1).
// ok is false when fewer than 2 values are given.
func SampleVariance(values []float64) (v float64, ok bool) {
	n := len(values)
	if n < 2 {
		return 0, false
	}
	return sumSquares(values) / float64(n-1), true
}

// SampleStdDev computes the sample standard deviation (n-1 denominator).
// ok is false when fewer than 2 values are given.
func SampleStdDev(values []float64) (float64, bool) {
	v, ok := SampleVariance(values)
	if !ok {
		return 0, false
	}
	return math.Sqrt(v), true
}

// CoefficientOfVariation returns std/mean expressed as a percentage.
// ok is false when mean is zero.
func CoefficientOfVariation(std, mean float64) (float64, bool) {
	if mean == 0 {
		return 0, false
	}
	return std / mean * 100, true
}

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
