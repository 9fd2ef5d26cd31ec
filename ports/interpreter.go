package ports

import (
	"context"

	"spcflow/domain/report"
)

// InterpretationInput is the structured statistical summary handed to the
// text service. The service's output is treated as an opaque string.
type InterpretationInput struct {
	Variable          string
	Stats             report.DescriptiveStats
	CenterLine        float64
	UpperControlLimit float64
	LowerControlLimit float64
	OutOfControlCount int
	TotalPoints       int
}

// TextInterpreter produces free-text commentary for statistical results.
// Implementations may call an external model; callers apply the retry policy
// around this boundary and must tolerate tens-of-seconds latency.
type TextInterpreter interface {
	Summarize(ctx context.Context, input InterpretationInput) (string, error)
}

// ChunkInput describes one row-range chunk submitted for external analysis.
type ChunkInput struct {
	ChunkIndex        int
	RowCount          int
	Variables         []string
	OutOfControlCount int
}

// ChunkAnalyzer is the external per-chunk analysis boundary. A chunk whose
// call exhausts its retry budget is dropped; the merge step assembles a
// best-effort report from the chunks that succeeded.
type ChunkAnalyzer interface {
	AnalyzeChunk(ctx context.Context, input ChunkInput) (string, error)
}

// IdentifierSuggester is the optional external judgment step that proposes
// identifier candidates beyond the deterministic detection. Suggestions are
// unioned without re-validation.
type IdentifierSuggester interface {
	SuggestIdentifiers(ctx context.Context, profiles []report.ColumnProfile) ([]report.IdentifierCandidate, error)
}
