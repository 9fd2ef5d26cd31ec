package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"spcflow/domain/report"
	"spcflow/ports"
)

// Interpreter turns structured statistical results into prose by prompting
// a chat-completion model. It implements the text interpretation, chunk
// analysis, and identifier suggestion boundaries; the pipeline treats every
// returned string as opaque.
type Interpreter struct {
	client    ports.LLMClient
	model     string
	maxTokens int
}

// NewInterpreter wires an interpreter to a client and model.
func NewInterpreter(client ports.LLMClient, model string, maxTokens int) *Interpreter {
	if maxTokens <= 0 {
		maxTokens = 512
	}
	return &Interpreter{client: client, model: model, maxTokens: maxTokens}
}

// Summarize produces commentary for one variable's control chart.
func (i *Interpreter) Summarize(ctx context.Context, input ports.InterpretationInput) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the process behavior of the variable %q in 2-3 plain sentences for a non-statistician.\n\n", input.Variable)
	fmt.Fprintf(&b, "Descriptive statistics: count=%d mean=%.4f median=%.4f stddev=%.4f min=%.4f max=%.4f\n",
		input.Stats.Count, input.Stats.Mean, input.Stats.Median, input.Stats.StdDev, input.Stats.Min, input.Stats.Max)
	fmt.Fprintf(&b, "Control chart: center=%.4f UCL=%.4f LCL=%.4f\n",
		input.CenterLine, input.UpperControlLimit, input.LowerControlLimit)
	fmt.Fprintf(&b, "%d of %d points fall outside the 3-sigma control limits.\n", input.OutOfControlCount, input.TotalPoints)
	b.WriteString("Do not use markdown headings. Do not invent numbers.")

	text, err := i.client.ChatCompletion(ctx, i.model, b.String(), i.maxTokens)
	if err != nil {
		return "", fmt.Errorf("interpretation request failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// AnalyzeChunk produces a short free-text note for one chunk of rows.
func (i *Interpreter) AnalyzeChunk(ctx context.Context, input ports.ChunkInput) (string, error) {
	prompt := fmt.Sprintf(
		"A dataset chunk (index %d, %d rows, variables: %s) produced %d out-of-control points against precomputed control limits. "+
			"Reply with one short sentence characterizing this chunk. No markdown.",
		input.ChunkIndex, input.RowCount, strings.Join(input.Variables, ", "), input.OutOfControlCount)

	text, err := i.client.ChatCompletion(ctx, i.model, prompt, i.maxTokens)
	if err != nil {
		return "", fmt.Errorf("chunk analysis request failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// SuggestIdentifiers asks the model which columns look like row identifiers.
// The reply must be a JSON array; anything unparseable is an error so the
// caller's retry policy can decide.
func (i *Interpreter) SuggestIdentifiers(ctx context.Context, profiles []report.ColumnProfile) ([]report.IdentifierCandidate, error) {
	var b strings.Builder
	b.WriteString("Given these column uniqueness profiles, list the columns that look like row identifiers.\n")
	for _, p := range profiles {
		fmt.Fprintf(&b, "- %s: %d/%d valid, %d unique\n", p.Column, p.ValidValues, p.TotalValues, p.UniqueValueCount)
	}
	b.WriteString("\nAnswer with a JSON array only, no prose: [{\"column\": \"...\", \"confidence\": \"high|medium|low\"}]")

	text, err := i.client.ChatCompletion(ctx, i.model, b.String(), i.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("identifier suggestion request failed: %w", err)
	}

	var raw []struct {
		Column     string `json:"column"`
		Confidence string `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONArray(text)), &raw); err != nil {
		return nil, fmt.Errorf("unparseable identifier suggestion: %w", err)
	}

	out := make([]report.IdentifierCandidate, 0, len(raw))
	for _, r := range raw {
		if strings.TrimSpace(r.Column) == "" {
			continue
		}
		out = append(out, report.IdentifierCandidate{
			Column:     strings.TrimSpace(r.Column),
			Confidence: r.Confidence,
			External:   true,
		})
	}
	return out, nil
}

// extractJSONArray tolerates models that wrap the array in code fences or
// surrounding prose.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
