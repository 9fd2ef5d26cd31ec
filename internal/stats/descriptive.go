// Package stats implements the descriptive statistics, correlation, and
// identifier-detection engines of the analysis pipeline.
package stats

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"spcflow/domain/report"
)

// Describe computes the summary statistics for one numeric series.
// Variance is the population variance (divide by n), quartiles use the
// nearest-rank method, and every result is rounded to 4 decimal places.
// The caller guarantees n >= 1.
func Describe(series []float64) report.DescriptiveStats {
	n := len(series)
	if n == 0 {
		return report.DescriptiveStats{}
	}

	mean, _ := stats.Mean(series)
	median, _ := stats.Median(series)
	variance, _ := stats.PopulationVariance(series)
	stdDev, _ := stats.StandardDeviationPopulation(series)
	minVal, _ := stats.Min(series)
	maxVal, _ := stats.Max(series)

	sorted := make([]float64, n)
	copy(sorted, series)
	sort.Float64s(sorted)

	return report.DescriptiveStats{
		Count:    n,
		Mean:     Round4(mean),
		Median:   Round4(median),
		StdDev:   Round4(stdDev),
		Variance: Round4(variance),
		Min:      Round4(minVal),
		Max:      Round4(maxVal),
		Range:    Round4(maxVal - minVal),
		Q1:       Round4(nearestRank(sorted, 0.25)),
		Q3:       Round4(nearestRank(sorted, 0.75)),
	}
}

// DescribeAll runs Describe over every series in the column set.
func DescribeAll(numeric map[string][]float64) map[string]report.DescriptiveStats {
	out := make(map[string]report.DescriptiveStats, len(numeric))
	for name, series := range numeric {
		out[name] = Describe(series)
	}
	return out
}

// nearestRank returns sorted[ceil(n*p)-1] clamped to the valid index range.
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// Round4 rounds to 4 decimal places, the precision carried by every value
// in a report.
func Round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
