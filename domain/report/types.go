package report

import (
	"time"

	"spcflow/domain/core"
)

// Status represents the processing state of an analysis run
type Status string

const (
	StatusPending          Status = "pending"
	StatusAnalyzing        Status = "analyzing"
	StatusGeneratingCharts Status = "generating_control_charts"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// CanTransition reports whether the state machine allows moving from s to next.
// Failed is reachable from every non-terminal state; completed only follows
// chart generation.
func (s Status) CanTransition(next Status) bool {
	if next == StatusFailed {
		return s != StatusCompleted && s != StatusFailed
	}
	switch s {
	case StatusPending:
		return next == StatusAnalyzing
	case StatusAnalyzing:
		return next == StatusGeneratingCharts
	case StatusGeneratingCharts:
		return next == StatusCompleted
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DescriptiveStats holds the summary statistics for one numeric variable.
// All values are rounded to 4 decimal places.
type DescriptiveStats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Range    float64 `json:"range"`
	Q1       float64 `json:"q1"`
	Q3       float64 `json:"q3"`
}

// CorrelationMatrix maps variable name -> variable name -> Pearson coefficient.
// Symmetric, includes the diagonal.
type CorrelationMatrix map[string]map[string]float64

// At returns the coefficient for (a, b), or 0 when the pair is absent.
func (m CorrelationMatrix) At(a, b string) float64 {
	if row, ok := m[a]; ok {
		return row[b]
	}
	return 0
}

// ChartType identifies the kind of control chart derived for a variable.
type ChartType string

const (
	ChartIndividuals ChartType = "individuals"
	ChartMovingRange ChartType = "moving_range"
)

// ChartPoint is a single plotted observation on a control chart.
type ChartPoint struct {
	Index          int     `json:"index"`
	Value          float64 `json:"value"`
	Identifier     string  `json:"identifier,omitempty"`
	IsOutOfControl bool    `json:"is_out_of_control"`
	DeviationLevel float64 `json:"deviation_level"` // |value - CL| / sigma, rounded for display
	BandIndex      int     `json:"band_index"`      // 0..3, assigned from the unrounded deviation
}

// SigmaBand groups points by their distance from the center line.
// The four bands partition every chart's points exactly.
type SigmaBand struct {
	SigmaRangeMin float64  `json:"sigma_range_min"`
	SigmaRangeMax float64  `json:"sigma_range_max"` // 0 means unbounded (>3 sigma band)
	Count         int      `json:"count"`
	MemberIndices []int    `json:"member_indices"`
	MemberLabels  []string `json:"member_labels,omitempty"`
}

// ControlChart is the derived SPC chart for one numeric variable.
// Charts are computed fresh each run and never mutated.
type ControlChart struct {
	Variable          string       `json:"variable"`
	ChartType         ChartType    `json:"chart_type"`
	CenterLine        float64      `json:"center_line"`
	UpperControlLimit float64      `json:"upper_control_limit"`
	LowerControlLimit float64      `json:"lower_control_limit"`
	Sigma             float64      `json:"sigma"`
	Points            []ChartPoint `json:"points"`
	OutOfControlIdx   []int        `json:"out_of_control_points"`
	SigmaBands        []SigmaBand  `json:"sigma_bands"`
	MovingRanges      []float64    `json:"moving_ranges,omitempty"`
	Interpretation    string       `json:"interpretation,omitempty"`
}

// ColumnProfile is the deterministic uniqueness analysis for one raw column.
type ColumnProfile struct {
	Column           string `json:"column"`
	TotalValues      int    `json:"total_values"`
	ValidValues      int    `json:"valid_values"`
	UniqueValueCount int    `json:"unique_value_count"`
	IsBasicCandidate bool   `json:"is_basic_candidate"`
}

// IdentifierCandidate is a proposed identifier column, either detected locally
// or suggested by an external judgment step.
type IdentifierCandidate struct {
	Column     string  `json:"column"`
	Confidence string  `json:"confidence,omitempty"` // opaque label from external suggestions
	Score      float64 `json:"score,omitempty"`
	External   bool    `json:"external"`
}

// IdentifierAnalysis bundles per-column profiles with the candidate set.
type IdentifierAnalysis struct {
	Profiles   []ColumnProfile       `json:"profiles"`
	Candidates []IdentifierCandidate `json:"candidates"`
}

// AnalysisReport is the top-level aggregate produced by one analysis run.
// Reports are immutable once written; a re-run inserts a new report row and
// the history is retained.
type AnalysisReport struct {
	ID        core.ReportID  `json:"id"`
	DatasetID core.DatasetID `json:"dataset_id"`

	DescriptiveStats  map[string]DescriptiveStats `json:"descriptive_stats"`
	CorrelationMatrix CorrelationMatrix           `json:"correlation_matrix"`
	ControlCharts     []ControlChart              `json:"control_charts"`
	Identifiers       IdentifierAnalysis          `json:"identifier_analysis"`
	DataIdentifiers   map[string][]string         `json:"data_identifiers"`
	InterpretiveText  string                      `json:"interpretive_summary,omitempty"`
	ChunkedEstimates  map[string]float64          `json:"chunked_estimates,omitempty"`
	ChunksSucceeded   int                         `json:"chunks_succeeded"`
	ChunksTotal       int                         `json:"chunks_total"`
	Status            Status                      `json:"status"`
	ErrorMessage      string                      `json:"error_message,omitempty"`
	CreatedAt         time.Time                   `json:"created_at"`
	CompletedAt       time.Time                   `json:"completed_at,omitempty"`
}

// NewReport creates a pending report for a dataset.
func NewReport(datasetID core.DatasetID) *AnalysisReport {
	return &AnalysisReport{
		ID:        core.ReportID(core.NewID()),
		DatasetID: datasetID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// IsComplete returns true once the run reached a successful terminal state.
func (r *AnalysisReport) IsComplete() bool {
	return r.Status == StatusCompleted
}

// IsPartial reports whether the run completed from a strict subset of chunks.
func (r *AnalysisReport) IsPartial() bool {
	return r.Status == StatusCompleted && r.ChunksTotal > 0 && r.ChunksSucceeded < r.ChunksTotal
}
