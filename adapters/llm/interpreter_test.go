package llm

import (
	"context"
	"errors"
	"testing"

	"spcflow/domain/report"
	"spcflow/ports"
)

func TestSummarizePassesThroughModelText(t *testing.T) {
	client := &MockLLMClient{Response: "The process is drifting upward."}
	interp := NewInterpreter(client, "test-model", 256)

	text, err := interp.Summarize(context.Background(), ports.InterpretationInput{
		Variable: "temp",
		Stats:    report.DescriptiveStats{Count: 10, Mean: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != "The process is drifting upward." {
		t.Fatalf("text = %q", text)
	}
	if client.Calls != 1 {
		t.Fatalf("expected 1 call, got %d", client.Calls)
	}
}

func TestSummarizePropagatesClientError(t *testing.T) {
	client := &MockLLMClient{Error: errors.New("backend down")}
	interp := NewInterpreter(client, "test-model", 256)

	_, err := interp.Summarize(context.Background(), ports.InterpretationInput{Variable: "temp"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSuggestIdentifiersParsesJSON(t *testing.T) {
	client := &MockLLMClient{Response: `[{"column": "serial_no", "confidence": "high"}, {"column": "", "confidence": "low"}]`}
	interp := NewInterpreter(client, "test-model", 256)

	out, err := interp.SuggestIdentifiers(context.Background(), []report.ColumnProfile{
		{Column: "serial_no", TotalValues: 5, ValidValues: 5, UniqueValueCount: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the blank-column entry dropped, got %+v", out)
	}
	if out[0].Column != "serial_no" || out[0].Confidence != "high" || !out[0].External {
		t.Fatalf("candidate = %+v", out[0])
	}
}

func TestSuggestIdentifiersToleratesCodeFences(t *testing.T) {
	client := &MockLLMClient{Response: "```json\n[{\"column\": \"id\"}]\n```"}
	interp := NewInterpreter(client, "test-model", 256)

	out, err := interp.SuggestIdentifiers(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Column != "id" {
		t.Fatalf("candidates = %+v", out)
	}
}

func TestSuggestIdentifiersRejectsProse(t *testing.T) {
	client := &MockLLMClient{Response: "I think the serial number column is the identifier."}
	interp := NewInterpreter(client, "test-model", 256)

	if _, err := interp.SuggestIdentifiers(context.Background(), nil); err == nil {
		t.Fatal("unparseable reply must surface an error for the retry policy")
	}
}

func TestAnalyzeChunkUsesModelReply(t *testing.T) {
	client := &MockLLMClient{Response: "Chunk looks stable."}
	interp := NewInterpreter(client, "test-model", 256)

	text, err := interp.AnalyzeChunk(context.Background(), ports.ChunkInput{
		ChunkIndex: 2, RowCount: 500, Variables: []string{"temp"}, OutOfControlCount: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Chunk looks stable." {
		t.Fatalf("text = %q", text)
	}
}
