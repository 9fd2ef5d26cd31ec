package analysis

import (
	"fmt"
	"sort"
	"strings"

	"spcflow/domain/core"
	"spcflow/domain/report"
)

// SummarySeparator joins distinct chunk summaries into one report-level text.
const SummarySeparator = " | "

// ScalarEstimate is a statistic computed redundantly on each chunk, keyed by
// the composite "{variable}-{comparedWith}" identity.
type ScalarEstimate struct {
	Variable     string  `json:"variable"`
	ComparedWith string  `json:"compared_with"`
	Value        float64 `json:"value"`
}

// Key returns the composite merge identity for the estimate.
func (s ScalarEstimate) Key() string {
	return fmt.Sprintf("%s-%s", s.Variable, s.ComparedWith)
}

// ChunkResult is the partial output of one chunk's analysis. Points are
// locally indexed within the chunk; Merge re-bases them.
type ChunkResult struct {
	ChunkIndex int
	Points     map[string][]report.ChartPoint
	Scalars    []ScalarEstimate
	Summary    string
}

// MergedResult is the unified output across all surviving chunks.
type MergedResult struct {
	Points  map[string][]report.ChartPoint
	Scalars map[string]ScalarEstimate
	Summary string
}

// Merge reassembles chunk outputs into one result set:
//
//   - point series are concatenated in chunk order with indices re-based to
//     chunkIndex*chunkSize + localIndex, so positions are continuous across
//     the whole dataset;
//   - scalar estimates computed per chunk are averaged by composite key,
//     tracking a per-key count (an approximation of the pooled statistic,
//     reproduced for compatibility with chunk-wise processing);
//   - free-text summaries are deduplicated and joined with SummarySeparator.
//
// Merge fails with ErrNoAnalyzableData when no chunk produced a usable
// partial result; the caller must propagate this rather than emit an empty
// report.
func Merge(partials []ChunkResult, chunkSize int) (*MergedResult, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	usable := 0
	for _, p := range partials {
		if len(p.Points) > 0 || len(p.Scalars) > 0 || p.Summary != "" {
			usable++
		}
	}
	if usable == 0 {
		return nil, core.ErrNoAnalyzableData
	}

	ordered := make([]ChunkResult, len(partials))
	copy(ordered, partials)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ChunkIndex < ordered[j].ChunkIndex })

	merged := &MergedResult{
		Points:  make(map[string][]report.ChartPoint),
		Scalars: make(map[string]ScalarEstimate),
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	var summaries []string
	seenSummary := make(map[string]bool)

	for _, p := range ordered {
		base := p.ChunkIndex * chunkSize
		for variable, points := range p.Points {
			for _, pt := range points {
				pt.Index = base + pt.Index
				merged.Points[variable] = append(merged.Points[variable], pt)
			}
		}

		for _, s := range p.Scalars {
			key := s.Key()
			sums[key] += s.Value
			counts[key]++
			if _, ok := merged.Scalars[key]; !ok {
				merged.Scalars[key] = ScalarEstimate{Variable: s.Variable, ComparedWith: s.ComparedWith}
			}
		}

		if text := strings.TrimSpace(p.Summary); text != "" && !seenSummary[text] {
			seenSummary[text] = true
			summaries = append(summaries, text)
		}
	}

	for key, est := range merged.Scalars {
		est.Value = sums[key] / float64(counts[key])
		merged.Scalars[key] = est
	}

	merged.Summary = strings.Join(summaries, SummarySeparator)
	return merged, nil
}
