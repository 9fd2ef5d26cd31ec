// Package postgres implements the storage ports against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"spcflow/domain/core"
	"spcflow/domain/report"
	"spcflow/ports"
)

// reportRepository implements the ReportRepository interface
type reportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new analysis report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &reportRepository{db: db}
}

// payloadOf serializes everything but the lifecycle columns. The analytical
// body of a report is written once at finalization and never updated, so a
// single JSONB column avoids a wide mutable schema.
func payloadOf(r *report.AnalysisReport) ([]byte, error) {
	payload := struct {
		DescriptiveStats map[string]report.DescriptiveStats `json:"descriptive_stats"`
		Correlation      report.CorrelationMatrix           `json:"correlation_matrix"`
		ControlCharts    []report.ControlChart              `json:"control_charts"`
		Identifiers      report.IdentifierAnalysis          `json:"identifier_analysis"`
		DataIdentifiers  map[string][]string                `json:"data_identifiers"`
		InterpretiveText string                             `json:"interpretive_summary,omitempty"`
		ChunkedEstimates map[string]float64                 `json:"chunked_estimates,omitempty"`
	}{
		DescriptiveStats: r.DescriptiveStats,
		Correlation:      r.CorrelationMatrix,
		ControlCharts:    r.ControlCharts,
		Identifiers:      r.Identifiers,
		DataIdentifiers:  r.DataIdentifiers,
		InterpretiveText: r.InterpretiveText,
		ChunkedEstimates: r.ChunkedEstimates,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report payload: %w", err)
	}
	return raw, nil
}

func scanPayload(raw []byte, r *report.AnalysisReport) error {
	if len(raw) == 0 {
		return nil
	}
	payload := struct {
		DescriptiveStats map[string]report.DescriptiveStats `json:"descriptive_stats"`
		Correlation      report.CorrelationMatrix           `json:"correlation_matrix"`
		ControlCharts    []report.ControlChart              `json:"control_charts"`
		Identifiers      report.IdentifierAnalysis          `json:"identifier_analysis"`
		DataIdentifiers  map[string][]string                `json:"data_identifiers"`
		InterpretiveText string                             `json:"interpretive_summary"`
		ChunkedEstimates map[string]float64                 `json:"chunked_estimates"`
	}{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal report payload: %w", err)
	}
	r.DescriptiveStats = payload.DescriptiveStats
	r.CorrelationMatrix = payload.Correlation
	r.ControlCharts = payload.ControlCharts
	r.Identifiers = payload.Identifiers
	r.DataIdentifiers = payload.DataIdentifiers
	r.InterpretiveText = payload.InterpretiveText
	r.ChunkedEstimates = payload.ChunkedEstimates
	return nil
}

// Create inserts a new pending report row
func (r *reportRepository) Create(ctx context.Context, rep *report.AnalysisReport) error {
	query := `INSERT INTO analysis_reports (
		id, dataset_id, status, error_message, chunks_succeeded, chunks_total, payload, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.DatasetID, rep.Status, rep.ErrorMessage,
		rep.ChunksSucceeded, rep.ChunksTotal, []byte("{}"), rep.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// UpdateStatus transitions a run's persisted status
func (r *reportRepository) UpdateStatus(ctx context.Context, id core.ReportID, status report.Status, errorMsg string) error {
	query := `UPDATE analysis_reports SET status = $2, error_message = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, errorMsg)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return core.NewNotFoundError("report", string(id))
	}
	return nil
}

// Finalize writes the complete report body and terminal state exactly once
func (r *reportRepository) Finalize(ctx context.Context, rep *report.AnalysisReport) error {
	raw, err := payloadOf(rep)
	if err != nil {
		return err
	}

	query := `UPDATE analysis_reports SET
		status = $2, error_message = $3, chunks_succeeded = $4, chunks_total = $5,
		payload = $6, completed_at = $7
	WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		rep.ID, rep.Status, rep.ErrorMessage, rep.ChunksSucceeded, rep.ChunksTotal,
		raw, rep.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to finalize report: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finalize result: %w", err)
	}
	if affected == 0 {
		return core.NewNotFoundError("report", string(rep.ID))
	}
	return nil
}

// GetByID retrieves a report by its ID
func (r *reportRepository) GetByID(ctx context.Context, id core.ReportID) (*report.AnalysisReport, error) {
	query := `SELECT
		id, dataset_id, status, COALESCE(error_message, '') as error_message,
		chunks_succeeded, chunks_total, payload, created_at, completed_at
	FROM analysis_reports WHERE id = $1`

	rep, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.NewNotFoundError("report", string(id))
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rep, nil
}

// ListByDataset retrieves reports for a dataset, newest first, with pagination
func (r *reportRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*report.AnalysisReport, error) {
	query := `SELECT
		id, dataset_id, status, COALESCE(error_message, '') as error_message,
		chunks_succeeded, chunks_total, payload, created_at, completed_at
	FROM analysis_reports
	WHERE dataset_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, datasetID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*report.AnalysisReport
	for rows.Next() {
		rep, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *reportRepository) scanOne(row rowScanner) (*report.AnalysisReport, error) {
	var rep report.AnalysisReport
	var raw []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&rep.ID, &rep.DatasetID, &rep.Status, &rep.ErrorMessage,
		&rep.ChunksSucceeded, &rep.ChunksTotal, &raw, &rep.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		rep.CompletedAt = completedAt.Time
	} else {
		rep.CompletedAt = time.Time{}
	}
	if err := scanPayload(raw, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
