package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spcflow/adapters/llm/heuristic"
	"spcflow/domain/core"
	"spcflow/domain/report"
	"spcflow/internal/analysis"
	"spcflow/internal/retry"
	"spcflow/internal/testkit"
)

func newTestApp() (*App, *testkit.InMemoryReportRepository) {
	repo := testkit.NewInMemoryReportRepository()
	interp := heuristic.NewInterpreter()
	pipeline := analysis.NewPipeline(repo, interp, interp, nil, analysis.Options{
		ChunkSize: 10,
		Retry:     retry.Policy{MaxAttempts: 1},
	})
	return NewApp(Config{Port: "0"}, repo, pipeline), repo
}

func seedReport(t *testing.T, repo *testkit.InMemoryReportRepository, datasetID core.DatasetID) *report.AnalysisReport {
	t.Helper()
	rep := report.NewReport(datasetID)
	rep.Status = report.StatusCompleted
	rep.InterpretiveText = "overall stable"
	rep.ControlCharts = []report.ControlChart{
		{Variable: "temp", ChartType: report.ChartIndividuals, Interpretation: "temp is steady"},
	}
	rep.ChunksSucceeded = 1
	rep.ChunksTotal = 1
	require.NoError(t, repo.Create(context.Background(), rep))
	return rep
}

func TestGetReport(t *testing.T) {
	app, repo := newTestApp()
	rep := seedReport(t, repo, core.NewDatasetID())

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/"+rep.ID.String(), nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got report.AnalysisReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, rep.ID, got.ID)
	assert.Equal(t, report.StatusCompleted, got.Status)
}

func TestGetReportNotFound(t *testing.T) {
	app, _ := newTestApp()

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/missing-id", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReportInterpretationRendersHTML(t *testing.T) {
	app, repo := newTestApp()
	rep := seedReport(t, repo, core.NewDatasetID())

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/reports/"+rep.ID.String()+"/interpretation", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	assert.Contains(t, body, "overall stable")
	assert.Contains(t, body, "<h2")
	assert.Contains(t, body, "temp is steady")
}

func TestListReports(t *testing.T) {
	app, repo := newTestApp()
	datasetID := core.NewDatasetID()
	seedReport(t, repo, datasetID)
	seedReport(t, repo, datasetID)
	seedReport(t, repo, core.NewDatasetID()) // other dataset, excluded

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/datasets/"+datasetID.String()+"/reports", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got struct {
		Reports []report.AnalysisReport `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got.Reports, 2)
}

func TestDatasetUploadRunsAnalysis(t *testing.T) {
	app, repo := newTestApp()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("dataset", "data.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("batch,temp\nB-1,20\nB-2,21\nB-3,35\n"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("identifier_column", "batch"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp struct {
		DatasetID string `json:"dataset_id"`
		Rows      int    `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DatasetID)
	assert.Equal(t, 3, resp.Rows)

	// The run proceeds in the background; poll until the report lands.
	datasetID, err := core.ParseDatasetID(resp.DatasetID)
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for {
		reports, err := repo.ListByDataset(context.Background(), datasetID, 10, 0)
		require.NoError(t, err)
		if len(reports) == 1 && reports[0].Status.IsTerminal() {
			assert.Equal(t, report.StatusCompleted, reports[0].Status)
			assert.Len(t, reports[0].ControlCharts, 1)
			return
		}
		select {
		case <-deadline:
			t.Fatal("analysis did not complete in time")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestDatasetUploadRejectsUnknownExtension(t *testing.T) {
	app, _ := newTestApp()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("dataset", "data.txt")
	fw.Write([]byte("hello"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "allowed"))
}

func TestDatasetUploadWithoutFile(t *testing.T) {
	app, _ := newTestApp()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("identifier_column", "batch")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rr := httptest.NewRecorder()
	app.Handler().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
