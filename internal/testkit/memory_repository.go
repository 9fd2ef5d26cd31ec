// Package testkit provides in-memory fakes for tests and for the CLI, which
// runs without a database.
package testkit

import (
	"context"
	"sort"
	"sync"

	"spcflow/domain/core"
	"spcflow/domain/report"
	"spcflow/ports"
)

var _ ports.ReportRepository = (*InMemoryReportRepository)(nil)

// InMemoryReportRepository implements ports.ReportRepository with a mutex-guarded
// map. Stored reports are deep-enough copies: callers mutating a report after
// Create do not leak into reads until Finalize.
type InMemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[core.ReportID]*report.AnalysisReport

	// StatusLog records every status write in order, for state-machine tests.
	StatusLog []report.Status
}

// NewInMemoryReportRepository creates an empty repository.
func NewInMemoryReportRepository() *InMemoryReportRepository {
	return &InMemoryReportRepository{reports: make(map[core.ReportID]*report.AnalysisReport)}
}

func (m *InMemoryReportRepository) Create(ctx context.Context, r *report.AnalysisReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *r
	m.reports[r.ID] = &clone
	m.StatusLog = append(m.StatusLog, r.Status)
	return nil
}

func (m *InMemoryReportRepository) UpdateStatus(ctx context.Context, id core.ReportID, status report.Status, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.reports[id]
	if !ok {
		return core.NewNotFoundError("report", string(id))
	}
	stored.Status = status
	stored.ErrorMessage = errorMsg
	m.StatusLog = append(m.StatusLog, status)
	return nil
}

func (m *InMemoryReportRepository) Finalize(ctx context.Context, r *report.AnalysisReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[r.ID]; !ok {
		return core.NewNotFoundError("report", string(r.ID))
	}
	clone := *r
	m.reports[r.ID] = &clone
	m.StatusLog = append(m.StatusLog, r.Status)
	return nil
}

func (m *InMemoryReportRepository) GetByID(ctx context.Context, id core.ReportID) (*report.AnalysisReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.reports[id]
	if !ok {
		return nil, core.NewNotFoundError("report", string(id))
	}
	clone := *stored
	return &clone, nil
}

func (m *InMemoryReportRepository) ListByDataset(ctx context.Context, datasetID core.DatasetID, limit, offset int) ([]*report.AnalysisReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*report.AnalysisReport
	for _, stored := range m.reports {
		if stored.DatasetID == datasetID {
			clone := *stored
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}
