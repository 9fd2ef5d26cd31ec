package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"spcflow/domain/report"
)

// Correlate builds the full pairwise Pearson matrix over the given series,
// N*N entries including the diagonal. The matrix is symmetric by
// construction: each unordered pair is computed once and mirrored.
//
// Coefficients are rounded to 4 decimals and clamped to [-1, 1]. Pairs whose
// coefficient is undefined are surfaced as 0 rather than NaN; this covers
// zero-variance series and column pairs whose filtered lengths differ (the
// per-column filtering in ingest means two columns carry no guaranteed
// positional correspondence unless their lengths match).
func Correlate(numeric map[string][]float64) report.CorrelationMatrix {
	names := make([]string, 0, len(numeric))
	for name := range numeric {
		names = append(names, name)
	}
	sort.Strings(names)

	matrix := make(report.CorrelationMatrix, len(names))
	for _, name := range names {
		matrix[name] = make(map[string]float64, len(names))
	}

	for i, a := range names {
		for j := i; j < len(names); j++ {
			b := names[j]
			r := pearson(numeric[a], numeric[b])
			matrix[a][b] = r
			matrix[b][a] = r
		}
	}
	return matrix
}

// Pairwise reports the Pearson coefficient for two aligned series under the
// same undefined-to-zero policy as Correlate.
func Pairwise(x, y []float64) float64 {
	return pearson(x, y)
}

func pearson(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return Round4(r)
}
