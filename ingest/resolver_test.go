package ingest

import (
	"errors"
	"strings"
	"testing"

	pkgerrors "health-coverage/pkg/errors"
)

// demoGrid builds a grid shaped like the demographic workbook: metadata rows
// up to headerRow, then the given header, then data rows.
func demoGrid(headerRow int, header []string, data ...[]string) *CellGrid {
	rows := make([][]string, headerRow)
	for i := range rows {
		rows[i] = []string{"United Nations", "World Population Prospects"}
	}
	rows = append(rows, header)
	rows = append(rows, data...)
	return &CellGrid{Source: "demographic", Rows: rows}
}

func TestResolveColumnsAnchorRow(t *testing.T) {
	header := []string{
		"Index", "Variant",
		"Region, subregion, country or area *",
		"Notes", "Location code",
		"ISO3 Alpha-code", "ISO2 Alpha-code", "SDMX code", "Type", "Parent code",
		"Year",
		"Births (thousands)",
	}
	grid := demoGrid(17, header)

	res, err := ResolveColumns(grid)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if res.HeaderRow != 17 {
		t.Errorf("HeaderRow = %d, want 17", res.HeaderRow)
	}
	if res.Positional {
		t.Error("Positional = true, want label-based resolution")
	}
	if got := res.Col(LabelCountry); got != 2 {
		t.Errorf("country column = %d, want 2", got)
	}
	if got := res.Col(LabelISO3); got != 5 {
		t.Errorf("iso3 column = %d, want 5", got)
	}
	if got := res.Col(LabelYear); got != 10 {
		t.Errorf("year column = %d, want 10", got)
	}
	if got := res.Col(LabelBirths); got != 11 {
		t.Errorf("births column = %d, want 11", got)
	}
}

func TestResolveColumnsFallbackHeaderRow(t *testing.T) {
	// No anchor phrase anywhere: the resolver should assume the fixed
	// fallback header row and still match labels there.
	rows := make([][]string, 16)
	for i := range rows {
		rows[i] = []string{"metadata"}
	}
	rows = append(rows, []string{"Country name", "Year", "Births (thousands)"})
	grid := &CellGrid{Source: "demographic", Rows: rows}

	res, err := ResolveColumns(grid)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if res.HeaderRow != 16 {
		t.Errorf("HeaderRow = %d, want fallback 16", res.HeaderRow)
	}
	if got := res.Col(LabelYear); got != 1 {
		t.Errorf("year column = %d, want 1", got)
	}
	if got := res.Col(LabelBirths); got != 2 {
		t.Errorf("births column = %d, want 2", got)
	}
	if res.Has(LabelCountry) {
		t.Error("country resolved without its anchor header, want unresolved")
	}
}

func TestResolveColumnsPositionalFallback(t *testing.T) {
	// No header text matches any pattern, but the row is wide enough for
	// the fixed column positions.
	header := make([]string, 12)
	for i := range header {
		header[i] = "col"
	}
	grid := demoGrid(16, header)

	res, err := ResolveColumns(grid)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if !res.Positional {
		t.Fatal("Positional = false, want positional fallback")
	}
	if got := res.Col(LabelCountry); got != 2 {
		t.Errorf("country column = %d, want 2", got)
	}
	if got := res.Col(LabelYear); got != 10 {
		t.Errorf("year column = %d, want 10", got)
	}
	if got := res.Col(LabelBirths); got != 11 {
		t.Errorf("births column = %d, want 11", got)
	}
}

func TestResolveColumnsTooNarrowFails(t *testing.T) {
	grid := demoGrid(16, []string{"a", "b", "c"})

	_, err := ResolveColumns(grid)
	if err == nil {
		t.Fatal("ResolveColumns on an unrecognizable grid: want error, got nil")
	}
	var perr *pkgerrors.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *PipelineError", err)
	}
	if perr.Code != pkgerrors.ErrCodeConfiguration {
		t.Errorf("error code = %s, want %s", perr.Code, pkgerrors.ErrCodeConfiguration)
	}
}

func TestResolveColumnsFirstMatchWins(t *testing.T) {
	header := []string{
		"Region, subregion, country or area *",
		"Region, subregion, country or area (duplicate)",
		"Year",
	}
	grid := demoGrid(15, header)

	res, err := ResolveColumns(grid)
	if err != nil {
		t.Fatalf("ResolveColumns: %v", err)
	}
	if got := res.Col(LabelCountry); got != 0 {
		t.Errorf("country column = %d, want first match at 0", got)
	}
}

func TestCellTrimsAndBounds(t *testing.T) {
	grid := &CellGrid{Source: "test", Rows: [][]string{{"  Kenya  ", "2022"}}}

	if got := grid.Cell(0, 0); got != "Kenya" {
		t.Errorf("Cell(0,0) = %q, want trimmed %q", got, "Kenya")
	}
	if got := grid.Cell(0, 5); got != "" {
		t.Errorf("Cell outside row = %q, want empty", got)
	}
	if got := grid.Cell(3, 0); got != "" {
		t.Errorf("Cell outside grid = %q, want empty", got)
	}
}

func TestParseCSVGridRaggedRows(t *testing.T) {
	input := "a,b,c\n1,2\nx,y,z,w\n"
	grid, err := ParseCSVGrid("unicef", strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseCSVGrid: %v", err)
	}
	if grid.RowCount() != 3 {
		t.Fatalf("RowCount = %d, want 3", grid.RowCount())
	}
	if got := grid.Cell(1, 1); got != "2" {
		t.Errorf("Cell(1,1) = %q, want %q", got, "2")
	}
}
