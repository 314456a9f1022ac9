package cleaning

import (
	"strconv"
	"strings"

	"health-coverage/ingest"
	pkgerrors "health-coverage/pkg/errors"
)

// DemographicNormalizer turns the formatted demographic workbook into one
// births-weight row per country.
type DemographicNormalizer struct {
	cfg Config
}

// NewDemographicNormalizer creates a normalizer for the demographic source.
func NewDemographicNormalizer(cfg Config) *DemographicNormalizer {
	return &DemographicNormalizer{cfg: cfg}
}

// Normalize resolves the workbook columns, filters to the acceptance window,
// and produces the weight-year births slice. When the weight year is absent
// entirely the stage degrades to using every in-window year rather than
// failing the run.
func (n *DemographicNormalizer) Normalize(grid *ingest.CellGrid) ([]CleanBirthsRow, StageStats, error) {
	stats := newStageStats(grid.Source)

	res, err := ingest.ResolveColumns(grid)
	if err != nil {
		return nil, stats, err
	}
	if missing := res.Missing(ingest.LabelCountry, ingest.LabelYear, ingest.LabelBirths); len(missing) > 0 {
		return nil, stats, pkgerrors.NewConfigurationError(grid.Source, missing)
	}

	type candidate struct {
		row  CleanBirthsRow
		year int
	}

	var inWindow []candidate
	countryCol := res.Col(ingest.LabelCountry)
	yearCol := res.Col(ingest.LabelYear)
	birthsCol := res.Col(ingest.LabelBirths)
	iso3Col := res.Col(ingest.LabelISO3)

	for r := res.HeaderRow + 1; r < grid.RowCount(); r++ {
		stats.Input++

		year, ok := parseYear(grid.Cell(r, yearCol))
		if !ok {
			stats.drop(DropMalformedYear)
			continue
		}
		if year < n.cfg.MinYear || year > n.cfg.MaxYear {
			stats.drop(DropOutOfWindow)
			continue
		}

		country := grid.Cell(r, countryCol)
		if country == "" {
			stats.drop(DropEmptyCountry)
			continue
		}

		births, err := parseBirths(grid.Cell(r, birthsCol))
		if err != nil {
			stats.drop(DropMissingBirths)
			continue
		}
		if births <= 0 {
			stats.drop(DropNonPositive)
			continue
		}

		iso3 := UnknownCode
		if iso3Col >= 0 {
			if code := grid.Cell(r, iso3Col); code != "" {
				iso3 = code
			}
		}

		inWindow = append(inWindow, candidate{
			row:  CleanBirthsRow{CountryName: country, ISO3Code: iso3, Births: births},
			year: year,
		})
	}

	// Weight-year slice, with the degraded all-years branch when empty
	selected := inWindow[:0:0]
	for _, c := range inWindow {
		if c.year == n.cfg.WeightYear {
			selected = append(selected, c)
		}
	}
	degraded := len(selected) == 0
	if degraded {
		selected = inWindow
	}

	// One row per country; first occurrence wins, duplicates are counted
	var rows []CleanBirthsRow
	seen := make(map[string]bool, len(selected))
	for _, c := range selected {
		if seen[c.row.CountryName] {
			stats.drop(DropDuplicate)
			continue
		}
		seen[c.row.CountryName] = true
		rows = append(rows, c.row)
	}

	// Rows outside the chosen slice count as dropped too
	if !degraded {
		stats.Dropped += len(inWindow) - len(selected)
		if len(inWindow) > len(selected) {
			stats.Reasons["outside_weight_year"] = len(inWindow) - len(selected)
		}
	}

	stats.Kept = len(rows)
	return rows, stats, nil
}

// parseYear accepts both integer cells and float-formatted cells ("2022.0"),
// which spreadsheet exports produce for numeric columns.
func parseYear(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	if year, err := strconv.Atoi(cell); err == nil {
		return year, true
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil && f == float64(int(f)) {
		return int(f), true
	}
	return 0, false
}

// parseBirths coerces a births cell, tolerating thousands separators.
func parseBirths(cell string) (float64, error) {
	cell = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
	return strconv.ParseFloat(cell, 64)
}
