package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"spcflow/domain/core"
	"spcflow/domain/report"
	"spcflow/internal"
	"spcflow/internal/ingest"
	"spcflow/internal/retry"
	"spcflow/internal/stats"
	"spcflow/ports"
)

// Options tunes one pipeline instance. The zero value gets sensible
// defaults from NewPipeline.
type Options struct {
	ChunkSize  int
	ChunkDelay time.Duration // pause between external chunk calls
	Workers    int           // concurrency bound for pure chunk processing
	Retry      retry.Policy
}

// Pipeline runs one full analysis per dataset submission: ingest,
// descriptive statistics, correlation, identifier detection, chunked
// control-chart derivation, merge, and report assembly. Independent runs
// share no mutable state; the report row is written exactly once per run.
type Pipeline struct {
	repo        ports.ReportRepository
	interpreter ports.TextInterpreter
	analyzer    ports.ChunkAnalyzer
	suggester   ports.IdentifierSuggester
	opts        Options
	logger      *internal.Logger
}

// NewPipeline creates a pipeline. interpreter, analyzer, and suggester may
// be nil; the corresponding external calls are skipped.
func NewPipeline(repo ports.ReportRepository, interpreter ports.TextInterpreter, analyzer ports.ChunkAnalyzer, suggester ports.IdentifierSuggester, opts Options) *Pipeline {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.Default()
	}
	return &Pipeline{
		repo:        repo,
		interpreter: interpreter,
		analyzer:    analyzer,
		suggester:   suggester,
		opts:        opts,
		logger:      internal.DefaultLogger,
	}
}

// Run executes the analysis for one dataset and persists the outcome. On
// unrecoverable error the report is stored once with failed status and the
// captured message; on success the completed report is stored once.
func (p *Pipeline) Run(ctx context.Context, datasetID core.DatasetID, rows []ingest.Row, identifierColumn string) (*report.AnalysisReport, error) {
	rep := report.NewReport(datasetID)
	if err := p.repo.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("failed to create report record: %w", err)
	}

	cols, err := ingest.NewIngestor(identifierColumn).Ingest(rows)
	if err != nil {
		return rep, p.fail(ctx, rep, err)
	}
	p.logger.Info("[Pipeline] dataset %s ingested: %d columns, %d rows", datasetID, len(cols.Columns), cols.RowCount)

	if err := p.transition(ctx, rep, report.StatusAnalyzing); err != nil {
		return rep, err
	}

	rep.DescriptiveStats = stats.DescribeAll(cols.Numeric)
	rep.CorrelationMatrix = stats.Correlate(cols.Numeric)
	rep.DataIdentifiers = cols.Identifiers

	profiles := stats.ProfileColumns(rows)
	rep.Identifiers = stats.DetectIdentifiers(profiles, p.suggestIdentifiers(ctx, profiles))

	if err := p.transition(ctx, rep, report.StatusGeneratingCharts); err != nil {
		return rep, err
	}

	limits := make(map[string]Limits, len(cols.Columns))
	for _, name := range cols.Columns {
		limits[name] = LimitsFor(cols.Numeric[name])
	}

	chunks := Chunk(cols.Numeric, cols.Identifiers, p.opts.ChunkSize)
	results, failedChunks := p.processChunks(ctx, chunks, limits)

	rep.ChunksTotal = len(chunks)
	rep.ChunksSucceeded = len(chunks) - failedChunks

	merged, err := Merge(results, p.opts.ChunkSize)
	if err != nil {
		return rep, p.fail(ctx, rep, err)
	}

	for _, name := range cols.Columns {
		chart := BuildChart(name, limits[name], merged.Points[name], MovingRanges(cols.Numeric[name]))
		chart.Interpretation = p.interpretChart(ctx, rep.DescriptiveStats[name], chart)
		rep.ControlCharts = append(rep.ControlCharts, chart)
	}

	rep.InterpretiveText = merged.Summary
	if len(merged.Scalars) > 0 {
		rep.ChunkedEstimates = make(map[string]float64, len(merged.Scalars))
		for key, est := range merged.Scalars {
			rep.ChunkedEstimates[key] = stats.Round4(est.Value)
		}
	}

	// A run superseded mid-flight lets its chunk results complete and then
	// discards them instead of finalizing.
	if ctx.Err() != nil {
		return rep, ctx.Err()
	}

	rep.Status = report.StatusCompleted
	rep.CompletedAt = time.Now()
	if err := p.repo.Finalize(ctx, rep); err != nil {
		return rep, fmt.Errorf("failed to finalize report: %w", err)
	}

	if rep.IsPartial() {
		p.logger.Warn("[Pipeline] analysis incomplete for dataset %s: %d of %d chunks succeeded", datasetID, rep.ChunksSucceeded, rep.ChunksTotal)
	} else {
		p.logger.Info("[Pipeline] analysis completed for dataset %s: %d charts", datasetID, len(rep.ControlCharts))
	}
	return rep, nil
}

// processChunks evaluates every chunk against the per-variable limits.
// Pure computation runs concurrently under a worker bound; when an external
// chunk analyzer is wired, chunks run sequentially with an inter-chunk delay
// so the remote rate limits are respected. A chunk whose external call
// exhausts its retries is dropped from the merge.
func (p *Pipeline) processChunks(ctx context.Context, chunks []DataChunk, limits map[string]Limits) ([]ChunkResult, int) {
	if p.analyzer == nil {
		results := make([]ChunkResult, len(chunks))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.opts.Workers)
		for i, chunk := range chunks {
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				results[i] = p.evaluateChunk(chunk, limits)
				return nil
			})
		}
		// Chunk evaluation is pure; the only error is cancellation, and
		// partially filled results are still merged best-effort.
		_ = g.Wait()
		return results, 0
	}

	var results []ChunkResult
	failed := 0
	for i, chunk := range chunks {
		if i > 0 && p.opts.ChunkDelay > 0 {
			time.Sleep(p.opts.ChunkDelay)
		}

		result := p.evaluateChunk(chunk, limits)

		input := ports.ChunkInput{
			ChunkIndex:        chunk.Index,
			RowCount:          chunkRowCount(chunk),
			Variables:         chunkVariables(chunk),
			OutOfControlCount: countOutOfControl(result),
		}
		err := p.opts.Retry.Do(ctx, func(callCtx context.Context) error {
			summary, callErr := p.analyzer.AnalyzeChunk(callCtx, input)
			if callErr != nil {
				return callErr
			}
			result.Summary = summary
			return nil
		})
		if err != nil {
			failed++
			p.logger.Warn("[Pipeline] chunk %d analysis failed after retries: %v", chunk.Index, err)
			continue
		}
		results = append(results, result)
	}
	return results, failed
}

// evaluateChunk computes the locally-indexed chart points for every
// variable in the chunk, plus the per-chunk pairwise correlation estimates
// that the merge step averages by composite key.
func (p *Pipeline) evaluateChunk(chunk DataChunk, limits map[string]Limits) ChunkResult {
	result := ChunkResult{
		ChunkIndex: chunk.Index,
		Points:     make(map[string][]report.ChartPoint, len(chunk.Series)),
	}
	names := chunkVariables(chunk)
	for _, name := range names {
		result.Points[name] = PointsAgainst(limits[name], chunk.Series[name], chunk.Labels[name])
	}
	for i, a := range names {
		for _, b := range names[i+1:] {
			x, y := chunk.Series[a], chunk.Series[b]
			if len(x) != len(y) || len(x) < 2 {
				continue
			}
			result.Scalars = append(result.Scalars, ScalarEstimate{
				Variable:     a,
				ComparedWith: b,
				Value:        stats.Pairwise(x, y),
			})
		}
	}
	return result
}

// suggestIdentifiers asks the external judgment step for extra identifier
// candidates. Failure here is never fatal to the run.
func (p *Pipeline) suggestIdentifiers(ctx context.Context, profiles []report.ColumnProfile) []report.IdentifierCandidate {
	if p.suggester == nil {
		return nil
	}
	var suggestions []report.IdentifierCandidate
	err := p.opts.Retry.Do(ctx, func(callCtx context.Context) error {
		out, callErr := p.suggester.SuggestIdentifiers(callCtx, profiles)
		if callErr != nil {
			return callErr
		}
		suggestions = out
		return nil
	})
	if err != nil {
		p.logger.Warn("[Pipeline] identifier suggestion failed: %v", err)
		return nil
	}
	return suggestions
}

// interpretChart obtains the opaque commentary for one chart. Failure
// leaves the interpretation slot empty.
func (p *Pipeline) interpretChart(ctx context.Context, ds report.DescriptiveStats, chart report.ControlChart) string {
	if p.interpreter == nil {
		return ""
	}
	input := ports.InterpretationInput{
		Variable:          chart.Variable,
		Stats:             ds,
		CenterLine:        chart.CenterLine,
		UpperControlLimit: chart.UpperControlLimit,
		LowerControlLimit: chart.LowerControlLimit,
		OutOfControlCount: len(chart.OutOfControlIdx),
		TotalPoints:       len(chart.Points),
	}
	var text string
	err := p.opts.Retry.Do(ctx, func(callCtx context.Context) error {
		out, callErr := p.interpreter.Summarize(callCtx, input)
		if callErr != nil {
			return callErr
		}
		text = out
		return nil
	})
	if err != nil {
		p.logger.Warn("[Pipeline] interpretation failed for %s: %v", chart.Variable, err)
		return ""
	}
	return text
}

// transition persists a state-machine step; an illegal transition is a
// programming error surfaced as a failed run.
func (p *Pipeline) transition(ctx context.Context, rep *report.AnalysisReport, next report.Status) error {
	if !rep.Status.CanTransition(next) {
		return p.fail(ctx, rep, fmt.Errorf("illegal status transition %s -> %s", rep.Status, next))
	}
	rep.Status = next
	if err := p.repo.UpdateStatus(ctx, rep.ID, next, ""); err != nil {
		return fmt.Errorf("failed to persist status %s: %w", next, err)
	}
	return nil
}

// fail records the terminal failure exactly once and returns err.
func (p *Pipeline) fail(ctx context.Context, rep *report.AnalysisReport, err error) error {
	rep.Status = report.StatusFailed
	rep.ErrorMessage = err.Error()
	if core.IsInputError(err) {
		p.logger.Warn("[Pipeline] run %s rejected: %v", rep.ID, err)
	} else {
		p.logger.Error("[Pipeline] run %s failed: %v", rep.ID, err)
	}
	if updateErr := p.repo.UpdateStatus(ctx, rep.ID, report.StatusFailed, err.Error()); updateErr != nil {
		p.logger.Error("[Pipeline] could not persist failure for %s: %v", rep.ID, updateErr)
	}
	return err
}

func chunkVariables(chunk DataChunk) []string {
	names := make([]string, 0, len(chunk.Series))
	for name := range chunk.Series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func chunkRowCount(chunk DataChunk) int {
	rows := 0
	for _, series := range chunk.Series {
		if len(series) > rows {
			rows = len(series)
		}
	}
	return rows
}

func countOutOfControl(result ChunkResult) int {
	n := 0
	for _, points := range result.Points {
		for _, pt := range points {
			if pt.IsOutOfControl {
				n++
			}
		}
	}
	return n
}
