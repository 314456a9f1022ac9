// Package ingest loads the raw public-health sources into uniform cell grids
// and resolves semantically-meaningful columns inside loosely-structured
// spreadsheets. All source inputs flow through here before normalization.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	pkgerrors "health-coverage/pkg/errors"
)

// CellGrid is a rectangular view over a raw source: rows of string cells,
// exactly as read, with no header interpretation applied yet.
type CellGrid struct {
	Source string     // Logical source name (unicef, demographic, status)
	Rows   [][]string // Raw cell text, row-major
}

// RowCount returns the number of rows in the grid.
func (g *CellGrid) RowCount() int {
	return len(g.Rows)
}

// Cell returns the trimmed cell text at (row, col), or "" when the position
// is outside the grid. Spreadsheet rows are ragged, so bounds are per-row.
func (g *CellGrid) Cell(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// Row returns the raw cells of a row, or nil when out of range.
func (g *CellGrid) Row(row int) []string {
	if row < 0 || row >= len(g.Rows) {
		return nil
	}
	return g.Rows[row]
}

// ReadCSVGrid loads a CSV file into a grid. The file handle is scoped to this
// call and released on every path.
func ReadCSVGrid(source, path string) (*CellGrid, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkgerrors.NewMissingSourceFileError(source, path)
		}
		return nil, fmt.Errorf("failed to open %s source: %w", source, err)
	}
	defer f.Close()
	return ParseCSVGrid(source, f)
}

// ParseCSVGrid parses CSV content from a reader into a grid.
func ParseCSVGrid(source string, r io.Reader) (*CellGrid, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Ragged rows are expected in exported indicator files
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s source: %w", source, err)
	}
	return &CellGrid{Source: source, Rows: rows}, nil
}

// ReadXLSXGrid loads the first sheet of a workbook into a grid. Formatted
// metadata rows at the top of the sheet are preserved; the resolver decides
// where the real header lives.
func ReadXLSXGrid(source, path string) (*CellGrid, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, pkgerrors.NewMissingSourceFileError(source, path)
	}

	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s workbook: %w", source, err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := wb.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s sheet %q: %w", source, sheets[0], err)
	}

	return &CellGrid{Source: source, Rows: rows}, nil
}
