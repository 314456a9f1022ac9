package cleaning

import (
	"strings"

	"health-coverage/ingest"
	pkgerrors "health-coverage/pkg/errors"
)

// Fixed column headers of the classification source.
const (
	colISO3Code     = "ISO3Code"
	colOfficialName = "OfficialName"
	colStatusU5MR   = "Status.U5MR"
)

// StatusNormalizer cleans the mortality-status classification table.
type StatusNormalizer struct{}

// NewStatusNormalizer creates a normalizer for the classification source.
func NewStatusNormalizer() *StatusNormalizer {
	return &StatusNormalizer{}
}

// Normalize trims names and codes, derives the status class from the
// free-text description, and deduplicates to one row per country.
func (n *StatusNormalizer) Normalize(grid *ingest.CellGrid) ([]CleanStatusRow, StageStats, error) {
	stats := newStageStats(grid.Source)

	if grid.RowCount() == 0 {
		return nil, stats, pkgerrors.NewMissingColumnError(grid.Source,
			[]string{colISO3Code, colOfficialName, colStatusU5MR})
	}

	index := mapHeaders(grid.Row(0))
	missing := missingHeaders(index, colISO3Code, colOfficialName, colStatusU5MR)
	if len(missing) > 0 {
		return nil, stats, pkgerrors.NewMissingColumnError(grid.Source, missing)
	}

	iso3Col := index[strings.ToLower(colISO3Code)]
	nameCol := index[strings.ToLower(colOfficialName)]
	statusCol := index[strings.ToLower(colStatusU5MR)]

	var rows []CleanStatusRow
	seen := make(map[CleanStatusRow]bool)

	for r := 1; r < grid.RowCount(); r++ {
		stats.Input++

		name := grid.Cell(r, nameCol)
		if name == "" {
			stats.drop(DropEmptyCountry)
			continue
		}

		row := CleanStatusRow{
			CountryName: name,
			ISO3Code:    grid.Cell(r, iso3Col),
			U5MRStatus:  ClassifyStatus(grid.Cell(r, statusCol)),
		}

		if seen[row] {
			stats.drop(DropDuplicate)
			continue
		}
		seen[row] = true
		rows = append(rows, row)
	}

	stats.Kept = len(rows)
	return rows, stats, nil
}

// ClassifyStatus maps a free-text mortality-progress description to a status
// class via case-insensitive substring matching. Missing or unrecognized
// text is unknown, never an error.
func ClassifyStatus(raw string) string {
	text := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case text == "":
		return StatusUnknown
	case strings.Contains(text, "achieved") || strings.Contains(text, "on-track"):
		return StatusOnTrack
	case strings.Contains(text, "acceleration") || strings.Contains(text, "off-track"):
		return StatusOffTrack
	default:
		return StatusUnknown
	}
}
