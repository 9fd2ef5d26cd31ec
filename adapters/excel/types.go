package excel

// RawRowData represents a row of raw tabular data as string key-value pairs
type RawRowData map[string]string

// TableData represents the complete tabular dataset
type TableData struct {
	Headers []string     // Column headers
	Rows    []RawRowData // Data rows
}
