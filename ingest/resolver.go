package ingest

import (
	"strings"

	pkgerrors "health-coverage/pkg/errors"
)

// Semantic labels resolved from the demographic workbook header.
const (
	LabelCountry    = "country"
	LabelISO3       = "iso3"
	LabelYear       = "year"
	LabelBirths     = "births"
	LabelPopulation = "population"
)

// anchorPhrase marks the real header row inside the formatted workbook.
// Everything above it is title and metadata text.
const anchorPhrase = "region, subregion, country or area"

// Header scan window and fallbacks observed in the published workbook layout:
// metadata occupies the first ~16 rows, the column header row sits near row 17
// (0-indexed 16), and the country/year/births columns sit at fixed ordinals
// when header text cannot be matched at all.
const (
	headerScanFrom    = 15
	headerScanTo      = 19 // inclusive
	fallbackHeaderRow = 16

	fallbackCountryCol = 2
	fallbackYearCol    = 10
	fallbackBirthsCol  = 11
	minFallbackWidth   = 12
)

// Resolution maps semantic labels to column indices within a chosen header row.
type Resolution struct {
	HeaderRow  int            // Row index holding column headers
	Columns    map[string]int // label -> column index
	Positional bool           // True when fixed column ordinals were used
}

// Has reports whether a label was resolved.
func (r *Resolution) Has(label string) bool {
	_, ok := r.Columns[label]
	return ok
}

// Col returns the column index for a label, or -1 when unresolved.
func (r *Resolution) Col(label string) int {
	if idx, ok := r.Columns[label]; ok {
		return idx
	}
	return -1
}

// Missing returns the subset of labels that did not resolve.
func (r *Resolution) Missing(labels ...string) []string {
	var missing []string
	for _, l := range labels {
		if !r.Has(l) {
			missing = append(missing, l)
		}
	}
	return missing
}

// ResolveColumns locates the header row and semantic columns of the
// demographic grid. Pure function over the grid: no mutation, deterministic
// output.
//
// Failure modes, in order of degradation:
//  1. anchor phrase not found in the scan window -> fixed fallback header row;
//  2. no header text matches any label pattern -> fixed column positions,
//     only when the row is wide enough to make positions meaningful;
//  3. otherwise a ConfigurationError.
func ResolveColumns(grid *CellGrid) (*Resolution, error) {
	headerRow := findHeaderRow(grid)

	res := &Resolution{
		HeaderRow: headerRow,
		Columns:   make(map[string]int),
	}

	header := grid.Row(headerRow)
	for col := range header {
		text := strings.ToLower(grid.Cell(headerRow, col))
		if text == "" {
			continue
		}
		if label, ok := matchLabel(text); ok {
			if _, taken := res.Columns[label]; !taken {
				res.Columns[label] = col
			}
		}
	}

	if len(res.Columns) > 0 {
		return res, nil
	}

	// Last resort: positional identification
	if len(header) >= minFallbackWidth {
		res.Positional = true
		res.Columns[LabelCountry] = fallbackCountryCol
		res.Columns[LabelYear] = fallbackYearCol
		res.Columns[LabelBirths] = fallbackBirthsCol
		return res, nil
	}

	return nil, pkgerrors.NewConfigurationError(grid.Source, []string{LabelCountry, LabelYear, LabelBirths})
}

// findHeaderRow scans the bounded window for the anchor phrase.
func findHeaderRow(grid *CellGrid) int {
	for row := headerScanFrom; row <= headerScanTo && row < grid.RowCount(); row++ {
		for col := range grid.Row(row) {
			if strings.Contains(strings.ToLower(grid.Cell(row, col)), anchorPhrase) {
				return row
			}
		}
	}
	return fallbackHeaderRow
}

// matchLabel tests lowercased header text against each label's patterns.
// First match wins; order mirrors the workbook column order so that the
// country anchor never loses to the looser patterns.
func matchLabel(text string) (string, bool) {
	switch {
	case strings.Contains(text, anchorPhrase):
		return LabelCountry, true
	case strings.Contains(text, "iso3 alpha-code"):
		return LabelISO3, true
	case text == "year": // exact match, trailing spaces already trimmed
		return LabelYear, true
	case strings.Contains(text, "births") && strings.Contains(text, "thousands"):
		return LabelBirths, true
	case strings.Contains(text, "total population, as of 1 july (thousands)"):
		return LabelPopulation, true
	}
	return "", false
}
