// Package heuristic provides a deterministic, network-free interpreter used
// when no chat-completion backend is configured.
package heuristic

import (
	"context"
	"fmt"
	"strings"

	"spcflow/ports"
)

// Interpreter generates commentary from algorithmic rules instead of a model.
type Interpreter struct{}

// NewInterpreter creates a new heuristic interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Summarize characterizes a variable's control chart from its numbers alone.
func (h *Interpreter) Summarize(ctx context.Context, input ports.InterpretationInput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s averages %.4f with a standard deviation of %.4f across %d observations.",
		input.Variable, input.Stats.Mean, input.Stats.StdDev, input.Stats.Count)

	switch {
	case input.TotalPoints == 0:
		b.WriteString(" No chart points were derived.")
	case input.OutOfControlCount == 0:
		b.WriteString(" Every point falls within the 3-sigma control limits; the process appears stable.")
	default:
		ratio := float64(input.OutOfControlCount) / float64(input.TotalPoints)
		fmt.Fprintf(&b, " %d of %d points (%.1f%%) exceed the 3-sigma control limits",
			input.OutOfControlCount, input.TotalPoints, ratio*100)
		if ratio > 0.1 {
			b.WriteString("; the process shows substantial instability and warrants investigation.")
		} else {
			b.WriteString("; isolated excursions should be reviewed individually.")
		}
	}
	return b.String(), nil
}

// AnalyzeChunk produces a one-line note for a chunk.
func (h *Interpreter) AnalyzeChunk(ctx context.Context, input ports.ChunkInput) (string, error) {
	if input.OutOfControlCount == 0 {
		return fmt.Sprintf("Chunk %d (%d rows) shows no out-of-control points.", input.ChunkIndex, input.RowCount), nil
	}
	return fmt.Sprintf("Chunk %d (%d rows) contains %d out-of-control points.",
		input.ChunkIndex, input.RowCount, input.OutOfControlCount), nil
}
