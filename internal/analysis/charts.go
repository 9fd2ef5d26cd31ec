package analysis

import (
	"math"

	"spcflow/domain/report"
	"spcflow/internal/stats"
)

// Limits holds the control limits for one variable's chart. The two
// construction paths agree by definition: UCL = CL + 3*sigma and
// LCL = CL - 3*sigma.
type Limits struct {
	CenterLine float64
	Upper      float64
	Lower      float64
	Sigma      float64
}

// LimitsFor computes individuals-chart limits locally: center line is the
// series mean, sigma the population standard deviation.
func LimitsFor(series []float64) Limits {
	if len(series) == 0 {
		return Limits{}
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	mean := sum / float64(len(series))

	var sq float64
	for _, v := range series {
		d := v - mean
		sq += d * d
	}
	sigma := math.Sqrt(sq / float64(len(series)))

	return Limits{
		CenterLine: stats.Round4(mean),
		Upper:      stats.Round4(mean + 3*sigma),
		Lower:      stats.Round4(mean - 3*sigma),
		Sigma:      stats.Round4(sigma),
	}
}

// LimitsFromBounds rebuilds Limits when an external estimation step supplied
// the control limits; sigma is recovered as (UCL - CL) / 3.
func LimitsFromBounds(centerLine, upper, lower float64) Limits {
	return Limits{
		CenterLine: centerLine,
		Upper:      upper,
		Lower:      lower,
		Sigma:      stats.Round4((upper - centerLine) / 3),
	}
}

// PointsAgainst evaluates a series (or a chunk of one) against the limits.
// Indices are local to the slice handed in; the merge step re-bases them.
// A point is out of control iff its absolute deviation exceeds 3 sigma.
func PointsAgainst(limits Limits, series []float64, labels []string) []report.ChartPoint {
	points := make([]report.ChartPoint, 0, len(series))
	for i, v := range series {
		dev := 0.0
		if limits.Sigma > 0 {
			dev = math.Abs(v-limits.CenterLine) / limits.Sigma
		}
		// Band assignment and the out-of-control test both use the raw
		// deviation; only the reported level is rounded. Rounding first
		// would let a point just past 3 sigma flag as out of control while
		// landing in the (2,3] band.
		pt := report.ChartPoint{
			Index:          i,
			Value:          v,
			DeviationLevel: stats.Round4(dev),
			BandIndex:      bandIndex(dev),
			IsOutOfControl: dev > 3,
		}
		if i < len(labels) {
			pt.Identifier = labels[i]
		}
		points = append(points, pt)
	}
	return points
}

// sigmaBandEdges defines the four mutually exclusive, collectively
// exhaustive bands: [0,1], (1,2], (2,3], >3. Max 0 marks the unbounded band.
var sigmaBandEdges = [][2]float64{
	{0, 1},
	{1, 2},
	{2, 3},
	{3, 0},
}

// BandsFor buckets every point into exactly one sigma band, retaining the
// member indices and identifier labels for drill-down. Band counts always
// sum to len(points).
func BandsFor(points []report.ChartPoint) []report.SigmaBand {
	bands := make([]report.SigmaBand, len(sigmaBandEdges))
	for i, edges := range sigmaBandEdges {
		bands[i] = report.SigmaBand{SigmaRangeMin: edges[0], SigmaRangeMax: edges[1]}
	}

	for _, pt := range points {
		idx := pt.BandIndex
		if idx < 0 || idx >= len(bands) {
			idx = bandIndex(pt.DeviationLevel)
		}
		bands[idx].Count++
		bands[idx].MemberIndices = append(bands[idx].MemberIndices, pt.Index)
		if pt.Identifier != "" {
			bands[idx].MemberLabels = append(bands[idx].MemberLabels, pt.Identifier)
		}
	}
	return bands
}

func bandIndex(deviation float64) int {
	switch {
	case deviation > 3:
		return 3
	case deviation > 2:
		return 2
	case deviation > 1:
		return 1
	default:
		return 0
	}
}

// MovingRanges computes |x[i] - x[i-1]| for i = 1..n-1, the short-term
// variability series used by Individual charts.
func MovingRanges(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	ranges := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		ranges = append(ranges, stats.Round4(math.Abs(series[i]-series[i-1])))
	}
	return ranges
}

// BuildChart assembles the individuals control chart for one variable from
// already-merged (globally indexed) points.
func BuildChart(variable string, limits Limits, points []report.ChartPoint, movingRanges []float64) report.ControlChart {
	var outOfControl []int
	for _, pt := range points {
		if pt.IsOutOfControl {
			outOfControl = append(outOfControl, pt.Index)
		}
	}

	return report.ControlChart{
		Variable:          variable,
		ChartType:         report.ChartIndividuals,
		CenterLine:        limits.CenterLine,
		UpperControlLimit: limits.Upper,
		LowerControlLimit: limits.Lower,
		Sigma:             limits.Sigma,
		Points:            points,
		OutOfControlIdx:   outOfControl,
		SigmaBands:        BandsFor(points),
		MovingRanges:      movingRanges,
	}
}

// DeriveChart is the whole-set path: limits, points, bands, and moving
// ranges for one variable in a single call.
func DeriveChart(variable string, series []float64, labels []string) report.ControlChart {
	limits := LimitsFor(series)
	points := PointsAgainst(limits, series, labels)
	return BuildChart(variable, limits, points, MovingRanges(series))
}
