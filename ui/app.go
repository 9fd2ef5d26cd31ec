// Package ui exposes the analysis pipeline over HTTP: dataset uploads go in,
// analysis reports come out.
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"spcflow/adapters/excel"
	"spcflow/domain/core"
	"spcflow/internal"
	"spcflow/internal/analysis"
	"spcflow/ports"
)

const maxUploadSize = 50 * 1024 * 1024 // 50MB

// App represents the HTTP application
type App struct {
	router   *chi.Mux
	repo     ports.ReportRepository
	pipeline *analysis.Pipeline
	port     string
	logger   *internal.Logger
}

// Config holds HTTP application configuration
type Config struct {
	Port string
}

// NewApp creates a new HTTP application
func NewApp(config Config, repo ports.ReportRepository, pipeline *analysis.Pipeline) *App {
	app := &App{
		router:   chi.NewRouter(),
		repo:     repo,
		pipeline: pipeline,
		port:     config.Port,
		logger:   internal.DefaultLogger,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Post("/api/datasets/upload", a.handleDatasetUpload)
	a.router.Get("/api/datasets/{id}/reports", a.handleListReports)
	a.router.Get("/api/reports/{id}", a.handleGetReport)
	a.router.Get("/api/reports/{id}/interpretation", a.handleReportInterpretation)
}

// Start starts the HTTP server
func (a *App) Start() error {
	addr := ":" + a.port
	a.logger.Info("Starting spcflow server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Handler exposes the router for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// handleDatasetUpload accepts an .xlsx or .csv file and kicks off an
// analysis run. The run proceeds in the background; the response carries the
// dataset id whose report list can be polled.
func (a *App) handleDatasetUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		a.writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("dataset")
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("file size (%.1f MB) exceeds the 50MB limit", float64(header.Size)/(1024*1024)))
		return
	}

	format := ""
	name := strings.ToLower(header.Filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		format = "csv"
	case strings.HasSuffix(name, ".xlsx"):
		format = "xlsx"
	default:
		a.writeError(w, http.StatusBadRequest, "only .xlsx and .csv files are allowed")
		return
	}

	table, err := excel.ReadStream(file, format)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	datasetID := core.NewDatasetID()
	identifierColumn := r.FormValue("identifier_column")
	rows := table.ToRows()

	// The analysis runs in the background; callers poll the dataset's
	// report list for the outcome.
	go func() {
		if _, err := a.pipeline.Run(context.Background(), datasetID, rows, identifierColumn); err != nil {
			a.logger.Error("[Upload] analysis run for dataset %s failed: %v", datasetID, err)
		}
	}()

	a.writeJSON(w, http.StatusAccepted, map[string]any{
		"dataset_id": datasetID,
		"rows":       len(rows),
		"columns":    len(table.Headers),
	})
}

// handleGetReport returns the full report document.
func (a *App) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	rep, err := a.repo.GetByID(r.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			a.writeError(w, http.StatusNotFound, "report not found")
			return
		}
		a.logger.Error("[Reports] failed to load %s: %v", id, err)
		a.writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}
	a.writeJSON(w, http.StatusOK, rep)
}

// handleReportInterpretation renders the report's interpretive text and
// per-chart commentary as HTML.
func (a *App) handleReportInterpretation(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseReportID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	rep, err := a.repo.GetByID(r.Context(), id)
	if err != nil {
		if core.IsNotFoundError(err) {
			a.writeError(w, http.StatusNotFound, "report not found")
			return
		}
		a.writeError(w, http.StatusInternalServerError, "failed to load report")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Report %s\n\n", rep.ID)
	if rep.IsPartial() {
		fmt.Fprintf(&b, "**Analysis incomplete: %d of %d chunks succeeded.**\n\n", rep.ChunksSucceeded, rep.ChunksTotal)
	}
	if rep.InterpretiveText != "" {
		fmt.Fprintf(&b, "%s\n\n", rep.InterpretiveText)
	}
	for _, chart := range rep.ControlCharts {
		if chart.Interpretation == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", chart.Variable, chart.Interpretation)
	}

	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	out := markdown.ToHTML([]byte(b.String()), p, renderer)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// handleListReports returns a dataset's reports, newest first.
func (a *App) handleListReports(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDatasetID(chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "invalid dataset id")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	reports, err := a.repo.ListByDataset(r.Context(), id, limit, offset)
	if err != nil {
		a.logger.Error("[Reports] failed to list for dataset %s: %v", id, err)
		a.writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func (a *App) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (a *App) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}
