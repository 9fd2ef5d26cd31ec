package analysis

import (
	"reflect"
	"testing"

	"spcflow/domain/report"
)

// limitsReference is a series with mean 10 and population sigma 2.
var limitsReference = []float64{8, 12, 8, 12, 8, 12, 8, 12}

func TestLimitsFor(t *testing.T) {
	limits := LimitsFor(limitsReference)
	if limits.CenterLine != 10 {
		t.Errorf("center line = %v, want 10", limits.CenterLine)
	}
	if limits.Sigma != 2 {
		t.Errorf("sigma = %v, want 2", limits.Sigma)
	}
	if limits.Upper != 16 || limits.Lower != 4 {
		t.Errorf("limits = [%v, %v], want [4, 16]", limits.Lower, limits.Upper)
	}
}

func TestLimitsFromBoundsRecoversSigma(t *testing.T) {
	limits := LimitsFromBounds(10, 16, 4)
	if limits.Sigma != 2 {
		t.Errorf("sigma = %v, want 2", limits.Sigma)
	}
}

func TestPointsAgainstOutOfControl(t *testing.T) {
	limits := Limits{CenterLine: 10, Upper: 16, Lower: 4, Sigma: 2}
	points := PointsAgainst(limits, []float64{10, 17, 16, 3}, []string{"a", "b", "c", "d"})

	if points[0].IsOutOfControl {
		t.Errorf("10 is on the center line, not out of control")
	}
	if !points[1].IsOutOfControl {
		t.Errorf("17 exceeds UCL 16, must be out of control")
	}
	// A value exactly on the limit deviates by exactly 3 sigma and stays in
	// control under the strict > 3 rule.
	if points[2].IsOutOfControl {
		t.Errorf("16 sits exactly on UCL, must remain in control")
	}
	if !points[3].IsOutOfControl {
		t.Errorf("3 falls below LCL 4, must be out of control")
	}
	if points[1].Identifier != "b" {
		t.Errorf("label not carried: %+v", points[1])
	}
}

func TestPointsAgainstZeroSigma(t *testing.T) {
	limits := Limits{CenterLine: 5, Upper: 5, Lower: 5, Sigma: 0}
	points := PointsAgainst(limits, []float64{5, 5, 5}, nil)
	for _, pt := range points {
		if pt.IsOutOfControl || pt.DeviationLevel != 0 {
			t.Fatalf("constant series produced excursion: %+v", pt)
		}
	}
}

func TestBandsForExhaustive(t *testing.T) {
	limits := Limits{CenterLine: 0, Upper: 3, Lower: -3, Sigma: 1}
	series := []float64{0, 0.5, -0.9, 1.5, -2, 2.5, -3, 3.5, -4}
	points := PointsAgainst(limits, series, nil)
	bands := BandsFor(points)

	if len(bands) != 4 {
		t.Fatalf("expected 4 bands, got %d", len(bands))
	}

	total := 0
	for _, b := range bands {
		total += b.Count
	}
	if total != len(series) {
		t.Fatalf("band counts sum to %d, want %d", total, len(series))
	}

	wantCounts := []int{3, 2, 2, 2} // [0,1], (1,2], (2,3], >3
	for i, want := range wantCounts {
		if bands[i].Count != want {
			t.Errorf("band %d count = %d, want %d", i, bands[i].Count, want)
		}
	}

	// Out-of-control membership coincides exactly with the >3 sigma band.
	var ooc []int
	for _, pt := range points {
		if pt.IsOutOfControl {
			ooc = append(ooc, pt.Index)
		}
	}
	if !reflect.DeepEqual(ooc, bands[3].MemberIndices) {
		t.Errorf("out-of-control set %v differs from >3 sigma band %v", ooc, bands[3].MemberIndices)
	}
}

func TestBandsForAgreesWithOutOfControlAtBoundary(t *testing.T) {
	// Deviations just either side of 3 sigma both round to a displayed
	// level of 3. Band membership must still follow the raw deviation so
	// the >3 sigma band and the out-of-control set stay identical.
	limits := Limits{CenterLine: 0, Upper: 3, Lower: -3, Sigma: 1}
	points := PointsAgainst(limits, []float64{3.00004, 2.99996}, nil)

	if !points[0].IsOutOfControl {
		t.Fatal("3.00004 exceeds 3 sigma, must be out of control")
	}
	if points[1].IsOutOfControl {
		t.Fatal("2.99996 is within 3 sigma, must stay in control")
	}
	if points[0].DeviationLevel != 3 || points[1].DeviationLevel != 3 {
		t.Fatalf("displayed levels = %v, %v, want both 3", points[0].DeviationLevel, points[1].DeviationLevel)
	}

	bands := BandsFor(points)
	if bands[3].Count != 1 || bands[2].Count != 1 {
		t.Fatalf("band counts (2,3]=%d >3=%d, want 1 and 1", bands[2].Count, bands[3].Count)
	}
	if len(bands[3].MemberIndices) != 1 || bands[3].MemberIndices[0] != points[0].Index {
		t.Fatalf(">3 sigma band members %v differ from out-of-control set [%d]", bands[3].MemberIndices, points[0].Index)
	}
}

func TestMovingRanges(t *testing.T) {
	got := MovingRanges([]float64{1, 4, 2, 2})
	want := []float64{3, 2, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("moving ranges = %v, want %v", got, want)
	}
	if MovingRanges([]float64{7}) != nil {
		t.Fatal("single point has no moving ranges")
	}
}

func TestDeriveChartReferenceSeries(t *testing.T) {
	series := append(append([]float64{}, limitsReference...), 17)
	chart := DeriveChart("pressure", series, nil)

	if chart.ChartType != report.ChartIndividuals {
		t.Errorf("chart type = %v", chart.ChartType)
	}

	limits := LimitsFor(series)
	if chart.CenterLine != limits.CenterLine || chart.Sigma != limits.Sigma {
		t.Errorf("chart limits do not match LimitsFor: %+v vs %+v", chart, limits)
	}
	if len(chart.Points) != len(series) {
		t.Errorf("point count = %d, want %d", len(chart.Points), len(series))
	}
	if len(chart.MovingRanges) != len(series)-1 {
		t.Errorf("moving range count = %d, want %d", len(chart.MovingRanges), len(series)-1)
	}

	// The appended 17 against mean 10, sigma 2 limits is the excursion case.
	fixed := Limits{CenterLine: 10, Upper: 16, Lower: 4, Sigma: 2}
	pts := PointsAgainst(fixed, []float64{17}, nil)
	if !pts[0].IsOutOfControl {
		t.Fatal("17 must be out of control against [4,16]")
	}
	bands := BandsFor(pts)
	if bands[3].Count != 1 {
		t.Fatalf("17 must land in the >3 sigma band: %+v", bands)
	}
}
