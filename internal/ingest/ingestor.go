// Package ingest converts raw tabular rows into column-oriented numeric
// series with per-observation identifier labels. Values that do not parse as
// finite numbers are discarded per column, so two columns may retain
// different row subsets; alignment is positional only within a column's own
// filtered set.
package ingest

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"spcflow/domain/core"
)

// Row is one raw observation: column name -> primitive value. Values may be
// native numerics or numeric strings; both are coerced.
type Row map[string]any

// ColumnSet is the ingestion output consumed by the statistics stages.
type ColumnSet struct {
	// Numeric holds one series per column that yielded at least one finite
	// numeric value, in original row order.
	Numeric map[string][]float64

	// Identifiers holds one label array per retained column, aligned with
	// that column's filtered series.
	Identifiers map[string][]string

	// Columns is the set of numeric column names in sorted order.
	Columns []string

	// RowCount is the original (pre-filter) row count.
	RowCount int
}

// Ingestor validates and columnizes raw datasets.
type Ingestor struct {
	identifierColumn string
}

// NewIngestor creates an ingestor. identifierColumn may be empty, in which
// case every observation gets a synthesized "Row {n}" label.
func NewIngestor(identifierColumn string) *Ingestor {
	return &Ingestor{identifierColumn: strings.TrimSpace(identifierColumn)}
}

// Ingest scans rows in order and builds the numeric column set.
func (ing *Ingestor) Ingest(rows []Row) (*ColumnSet, error) {
	if len(rows) == 0 {
		return nil, core.ErrEmptyDataset
	}
	if len(rows) < 2 {
		return nil, core.ErrInsufficientRows
	}

	if ing.identifierColumn != "" {
		if !columnExists(rows, ing.identifierColumn) {
			return nil, fmt.Errorf("%w: %q", core.ErrInvalidIdentifierColumn, ing.identifierColumn)
		}
	}

	columns := columnOrder(rows)

	out := &ColumnSet{
		Numeric:     make(map[string][]float64),
		Identifiers: make(map[string][]string),
		RowCount:    len(rows),
	}

	for _, col := range columns {
		var series []float64
		var labels []string
		for i, row := range rows {
			v, ok := row[col]
			if !ok {
				continue
			}
			f, ok := CoerceNumeric(v)
			if !ok {
				continue
			}
			series = append(series, f)
			labels = append(labels, ing.labelFor(row, i))
		}
		if len(series) == 0 {
			continue
		}
		out.Numeric[col] = series
		out.Identifiers[col] = labels
		out.Columns = append(out.Columns, col)
	}

	if len(out.Numeric) == 0 {
		return nil, core.ErrNoNumericColumns
	}

	return out, nil
}

// labelFor resolves the identifier label for a kept row. rowIdx is the
// 0-based original position.
func (ing *Ingestor) labelFor(row Row, rowIdx int) string {
	if ing.identifierColumn != "" {
		if v, ok := row[ing.identifierColumn]; ok && v != nil {
			s := strings.TrimSpace(fmt.Sprintf("%v", v))
			if s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("Row %d", rowIdx+1)
}

// CoerceNumeric converts a raw cell value to a finite float64. Numeric
// strings are accepted; NaN and infinities are rejected.
func CoerceNumeric(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return finite(t)
	case float32:
		return finite(float64(t))
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return finite(f)
	default:
		return 0, false
	}
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// columnExists reports whether any row carries the named column.
func columnExists(rows []Row, col string) bool {
	for _, row := range rows {
		if _, ok := row[col]; ok {
			return true
		}
	}
	return false
}

// columnOrder collects every column name appearing in any row, sorted, so
// ragged inputs still surface every column deterministically.
func columnOrder(rows []Row) []string {
	seen := make(map[string]bool)
	var order []string
	for _, row := range rows {
		for col := range row {
			if !seen[col] {
				seen[col] = true
				order = append(order, col)
			}
		}
	}
	sort.Strings(order)
	return order
}
