package analysis

import (
	"fmt"
	"reflect"
	"testing"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestChunkSizes(t *testing.T) {
	numeric := map[string][]float64{"v": sequence(1200)}
	chunks := Chunk(numeric, nil, 500)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantSizes := []int{500, 500, 200}
	for i, want := range wantSizes {
		if got := len(chunks[i].Series["v"]); got != want {
			t.Errorf("chunk %d has %d rows, want %d", i, got, want)
		}
		if chunks[i].Index != i {
			t.Errorf("chunk %d carries index %d", i, chunks[i].Index)
		}
	}
}

func TestChunkRoundTrip(t *testing.T) {
	original := sequence(1083)
	labels := make([]string, len(original))
	for i := range labels {
		labels[i] = fmt.Sprintf("Row %d", i+1)
	}
	numeric := map[string][]float64{"v": original}

	for _, size := range []int{1, 7, 100, 500, 2000} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			chunks := Chunk(numeric, map[string][]string{"v": labels}, size)

			var rebuilt []float64
			var rebuiltLabels []string
			for _, c := range chunks {
				rebuilt = append(rebuilt, c.Series["v"]...)
				rebuiltLabels = append(rebuiltLabels, c.Labels["v"]...)
			}

			if !reflect.DeepEqual(rebuilt, original) {
				t.Fatalf("series round trip failed for size %d", size)
			}
			if !reflect.DeepEqual(rebuiltLabels, labels) {
				t.Fatalf("label round trip failed for size %d", size)
			}
		})
	}
}

func TestChunkUnevenSeries(t *testing.T) {
	numeric := map[string][]float64{
		"long":  sequence(10),
		"short": sequence(3),
	}
	chunks := Chunk(numeric, nil, 4)

	if len(chunks) != 3 {
		t.Fatalf("chunk count driven by longest series: got %d, want 3", len(chunks))
	}
	// The short series is exhausted after the first chunk.
	if got := len(chunks[0].Series["short"]); got != 3 {
		t.Errorf("short in chunk 0 = %d rows, want 3", got)
	}
	if _, ok := chunks[1].Series["short"]; ok {
		t.Errorf("short should not appear in chunk 1")
	}

	var rebuilt []float64
	for _, c := range chunks {
		rebuilt = append(rebuilt, c.Series["short"]...)
	}
	if !reflect.DeepEqual(rebuilt, sequence(3)) {
		t.Fatalf("short series round trip failed: %v", rebuilt)
	}
}

func TestChunkEmptyInput(t *testing.T) {
	if chunks := Chunk(map[string][]float64{}, nil, 500); chunks != nil {
		t.Fatalf("expected nil for empty input, got %v", chunks)
	}
}
