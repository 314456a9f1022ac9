package cleaning

import (
	"sort"
	"strconv"
	"strings"

	"health-coverage/ingest"
	pkgerrors "health-coverage/pkg/errors"
)

// Fixed column headers of the indicator export. The source encodes both a
// code and a display name into each header and each value cell.
const (
	colRefArea    = "REF_AREA:Geographic area"
	colIndicator  = "INDICATOR:Indicator"
	colTimePeriod = "TIME_PERIOD:Time period"
	colObsValue   = "OBS_VALUE:Observation Value"
)

// UNICEFNormalizer cleans the long-format indicator export into
// CleanCoverageRow records.
type UNICEFNormalizer struct {
	cfg Config
}

// NewUNICEFNormalizer creates a normalizer for the indicator source.
func NewUNICEFNormalizer(cfg Config) *UNICEFNormalizer {
	return &UNICEFNormalizer{cfg: cfg}
}

// Normalize filters the export to the acceptance window, splits composite
// fields, coerces and validates observation values, and selects exactly one
// row per (country, indicator): the most recent in-window estimate.
func (n *UNICEFNormalizer) Normalize(grid *ingest.CellGrid) ([]CleanCoverageRow, StageStats, error) {
	stats := newStageStats(grid.Source)

	if grid.RowCount() == 0 {
		return nil, stats, pkgerrors.NewMissingColumnError(grid.Source,
			[]string{colRefArea, colIndicator, colTimePeriod, colObsValue})
	}

	index := mapHeaders(grid.Row(0))
	missing := missingHeaders(index, colRefArea, colIndicator, colTimePeriod, colObsValue)
	if len(missing) > 0 {
		return nil, stats, pkgerrors.NewMissingColumnError(grid.Source, missing)
	}

	refAreaCol := index[strings.ToLower(colRefArea)]
	indicatorCol := index[strings.ToLower(colIndicator)]
	yearCol := index[strings.ToLower(colTimePeriod)]
	valueCol := index[strings.ToLower(colObsValue)]

	var rows []CleanCoverageRow
	seen := make(map[CleanCoverageRow]bool)

	for r := 1; r < grid.RowCount(); r++ {
		stats.Input++

		year, err := strconv.Atoi(grid.Cell(r, yearCol))
		if err != nil {
			stats.drop(DropMalformedYear)
			continue
		}
		if year < n.cfg.MinYear || year > n.cfg.MaxYear {
			stats.drop(DropOutOfWindow)
			continue
		}

		value, err := strconv.ParseFloat(grid.Cell(r, valueCol), 64)
		if err != nil {
			stats.drop(DropMalformedValue)
			continue
		}
		if value < 0 || value > 100 {
			stats.drop(DropOutOfRange)
			continue
		}

		countryCode, countryName := splitComposite(grid.Cell(r, refAreaCol))
		indicatorCode, indicatorName := splitComposite(grid.Cell(r, indicatorCol))
		if countryName == "" {
			stats.drop(DropEmptyCountry)
			continue
		}

		row := CleanCoverageRow{
			CountryName:       countryName,
			ISO3Code:          countryCode,
			Indicator:         indicatorCode,
			IndicatorFullName: indicatorName,
			Year:              year,
			CoverageValue:     value,
		}

		// Exact duplicates carry no information
		if seen[row] {
			stats.drop(DropDuplicate)
			continue
		}
		seen[row] = true
		rows = append(rows, row)
	}

	rows, superseded := selectMostRecent(rows)
	for i := 0; i < superseded; i++ {
		stats.drop(DropSuperseded)
	}
	stats.Kept = len(rows)

	return rows, stats, nil
}

// splitComposite splits a "CODE: Name" field on the first colon. A missing
// delimiter means the whole string is the name and the code is unknown.
func splitComposite(field string) (code, name string) {
	field = strings.TrimSpace(field)
	if idx := strings.Index(field, ":"); idx >= 0 {
		code = strings.TrimSpace(field[:idx])
		name = strings.TrimSpace(field[idx+1:])
		if code == "" {
			code = UnknownCode
		}
		if name == "" {
			name = field
		}
		return code, name
	}
	return UnknownCode, field
}

// selectMostRecent keeps one row per (country, indicator): the one with the
// maximum year. Ties resolve to whichever row sorts first after a stable
// descending-year sort, which keeps the selection deterministic across runs.
func selectMostRecent(rows []CleanCoverageRow) ([]CleanCoverageRow, int) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CountryName != rows[j].CountryName {
			return rows[i].CountryName < rows[j].CountryName
		}
		if rows[i].Indicator != rows[j].Indicator {
			return rows[i].Indicator < rows[j].Indicator
		}
		return rows[i].Year > rows[j].Year
	})

	var kept []CleanCoverageRow
	superseded := 0
	for _, row := range rows {
		if n := len(kept); n > 0 &&
			kept[n-1].CountryName == row.CountryName &&
			kept[n-1].Indicator == row.Indicator {
			superseded++
			continue
		}
		kept = append(kept, row)
	}
	return kept, superseded
}

// mapHeaders builds a lowercased header -> column index map.
func mapHeaders(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, taken := index[key]; !taken {
			index[key] = i
		}
	}
	return index
}

func missingHeaders(index map[string]int, required ...string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := index[strings.ToLower(key)]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
