// Package excel reads uploaded Excel and CSV datasets into the raw row
// format the analysis pipeline ingests.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"spcflow/internal"
	"spcflow/internal/ingest"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: internal.DefaultLogger}
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*TableData, error) {
	r.logger.Info("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		file, err := os.Open(r.filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer file.Close()
		return r.readCSV(file)
	case "xlsx":
		return r.readExcel()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// ReadStream reads tabular data from an already-open source, as delivered by
// an HTTP upload. format is "csv" or "xlsx".
func ReadStream(src io.Reader, format string) (*TableData, error) {
	reader := &DataReader{fileType: format, logger: internal.DefaultLogger}
	switch format {
	case "csv":
		return reader.readCSV(src)
	case "xlsx":
		f, err := excelize.OpenReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to open Excel stream: %w", err)
		}
		defer f.Close()
		return reader.readSheet(f)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", format)
	}
}

// readExcel reads Excel data from Sheet1 into structured format
func (r *DataReader) readExcel() (*TableData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()
	r.logger.Debug("[DataReader] Excel file opened in %.2fms", float64(time.Since(startTime).Nanoseconds())/1e6)

	return r.readSheet(f)
}

// readSheet pulls all rows from Sheet1.
func (r *DataReader) readSheet(f *excelize.File) (*TableData, error) {
	readStart := time.Now()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	r.logger.Debug("[DataReader] Sheet1 read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("Excel file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// readCSV reads CSV data into structured format
func (r *DataReader) readCSV(src io.Reader) (*TableData, error) {
	reader := csv.NewReader(src)
	reader.FieldsPerRecord = -1

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("[DataReader] CSV read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV file must have at least a header row and one data row")
	}

	return r.processRows(rows)
}

// processRows converts raw string rows into TableData format
func (r *DataReader) processRows(rows [][]string) (*TableData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	var dataRows []RawRowData
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		rowData := make(RawRowData)

		for j, cell := range row {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}

		dataRows = append(dataRows, rowData)
	}

	r.logger.Info("[DataReader] %s file processed (%d columns, %d rows)",
		strings.ToUpper(r.fileType), len(headers), len(dataRows))

	return &TableData{
		Headers: headers,
		Rows:    dataRows,
	}, nil
}

// ToRows converts the raw table into the pipeline's row format. Cell values
// stay as strings; the ingestor is responsible for numeric coercion.
func (d *TableData) ToRows() []ingest.Row {
	out := make([]ingest.Row, 0, len(d.Rows))
	for _, raw := range d.Rows {
		row := make(ingest.Row, len(raw))
		for k, v := range raw {
			row[k] = v
		}
		out = append(out, row)
	}
	return out
}
