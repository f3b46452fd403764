package statistics

import (
	"math"
	"math/rand"
	"sort"
)

// ConfidenceInterval holds the result of a bootstrap confidence interval computation.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// DefaultBootstrapIterations is the number of bootstrap resamples.
const DefaultBootstrapIterations = 10000

// BootstrapCIWithSeed computes a bootstrap confidence interval of the mean of
// values using the percentile method. confidenceLevel should be in (0, 1),
// e.g. 0.95. A negative seed uses a non-deterministic source. Returns a
// degenerate interval when fewer than 2 data points exist.
func BootstrapCIWithSeed(values []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	n := len(values)
	m := mean(values)
	if n < 2 {
		return degenerate(m, confidenceLevel)
	}

	rng := newRand(seed)
	bootMeans := make([]float64, DefaultBootstrapIterations)
	sample := make([]float64, n)
	for i := range bootMeans {
		resample(rng, values, sample)
		bootMeans[i] = mean(sample)
	}
	return percentile(bootMeans, m, confidenceLevel)
}

// BootstrapDiffCI computes a bootstrap confidence interval of mean(b) - mean(a),
// resampling each group independently. A negative seed uses a
// non-deterministic source. Returns a degenerate interval when either group
// has fewer than 2 data points.
func BootstrapDiffCI(a, b []float64, confidenceLevel float64, seed int64) ConfidenceInterval {
	diff := mean(b) - mean(a)
	if len(a) < 2 || len(b) < 2 {
		return degenerate(diff, confidenceLevel)
	}

	rng := newRand(seed)
	bootDiffs := make([]float64, DefaultBootstrapIterations)
	sa := make([]float64, len(a))
	sb := make([]float64, len(b))
	for i := range bootDiffs {
		resample(rng, a, sa)
		resample(rng, b, sb)
		bootDiffs[i] = mean(sb) - mean(sa)
	}
	return percentile(bootDiffs, diff, confidenceLevel)
}

// IsSignificant returns true if the confidence interval does not contain zero,
// indicating statistical significance at the given confidence level.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

func newRand(seed int64) *rand.Rand {
	if seed >= 0 {
		return rand.New(rand.NewSource(seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

func resample(rng *rand.Rand, src, dst []float64) {
	n := len(src)
	for j := range dst {
		dst[j] = src[rng.Intn(n)]
	}
}

func degenerate(m, confidenceLevel float64) ConfidenceInterval {
	return ConfidenceInterval{
		Lower:           m,
		Upper:           m,
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
	}
}

// percentile sorts boot in place and reads the interval bounds off it.
func percentile(boot []float64, m, confidenceLevel float64) ConfidenceInterval {
	sort.Float64s(boot)

	iters := len(boot)
	alpha := 1.0 - confidenceLevel
	loIdx := int(math.Floor(alpha / 2.0 * float64(iters)))
	hiIdx := int(math.Floor((1.0 - alpha/2.0) * float64(iters)))
	if hiIdx >= iters {
		hiIdx = iters - 1
	}

	return ConfidenceInterval{
		Lower:           boot[loIdx],
		Upper:           boot[hiIdx],
		Mean:            m,
		ConfidenceLevel: confidenceLevel,
		NumBootstraps:   iters,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
