// Package analysis hosts the chunking coordinator, the partial-result
// merger, the control chart deriver, and the pipeline runner that ties the
// stages together.
package analysis

import "sort"

// DefaultChunkSize bounds the row count handed to a single external
// analysis request.
const DefaultChunkSize = 500

// DataChunk is a positional row-range slice of every numeric series plus
// the identifier labels aligned with each series. Purely a batching
// artifact: concatenating chunks in order reconstructs the originals
// exactly.
type DataChunk struct {
	Index  int
	Start  int
	Series map[string][]float64
	Labels map[string][]string
}

// Chunk splits the numeric series into fixed-size row chunks. The chunk
// count is driven by the longest series so no series loses rows; shorter
// series simply stop contributing once exhausted. The final chunk may be
// shorter than size.
func Chunk(numeric map[string][]float64, labels map[string][]string, size int) []DataChunk {
	if size <= 0 {
		size = DefaultChunkSize
	}

	rows := 0
	for _, series := range numeric {
		if len(series) > rows {
			rows = len(series)
		}
	}
	if rows == 0 {
		return nil
	}

	names := make([]string, 0, len(numeric))
	for name := range numeric {
		names = append(names, name)
	}
	sort.Strings(names)

	var chunks []DataChunk
	for start := 0; start < rows; start += size {
		chunk := DataChunk{
			Index:  len(chunks),
			Start:  start,
			Series: make(map[string][]float64, len(names)),
			Labels: make(map[string][]string, len(names)),
		}
		for _, name := range names {
			series := numeric[name]
			if start >= len(series) {
				continue
			}
			end := start + size
			if end > len(series) {
				end = len(series)
			}
			chunk.Series[name] = series[start:end]
			if lab, ok := labels[name]; ok && start < len(lab) {
				labEnd := end
				if labEnd > len(lab) {
					labEnd = len(lab)
				}
				chunk.Labels[name] = lab[start:labEnd]
			}
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}
