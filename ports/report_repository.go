package ports

import (
	"context"

	"spcflow/domain/core"
	"spcflow/domain/report"
)

// ReportRepository defines the interface for analysis report storage operations
type ReportRepository interface {
	// Create inserts a new pending report row for a run.
	Create(ctx context.Context, r *report.AnalysisReport) error

	// UpdateStatus transitions a run's persisted status. errorMsg is stored
	// only for the failed status.
	UpdateStatus(ctx context.Context, id core.ReportID, status report.Status, errorMsg string) error

	// Finalize writes the complete report payload exactly once per run.
	Finalize(ctx context.Context, r *report.AnalysisReport) error

	// Queries
	GetByID(ctx context.Context, id core.ReportID) (*report.AnalysisReport, error)
	ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*report.AnalysisReport, error)
}
