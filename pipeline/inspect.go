package pipeline

import (
	"fmt"
	"path/filepath"

	"health-coverage/ingest"
)

// SourceStructure describes the discovered shape of one raw source, plus the
// cleaning steps its normalizer will apply. Used by the inspect command to
// make the cleaning policy reviewable before a run.
type SourceStructure struct {
	Source        string            `json:"source"`
	Path          string            `json:"path"`
	Rows          int               `json:"rows"`
	HeaderRow     int               `json:"header_row"`
	Headers       []string          `json:"headers"`
	KeyColumns    map[string]string `json:"key_columns"`
	CleaningNeeds []string          `json:"cleaning_needs"`
}

// Inspect loads all three sources and reports their structure without
// running the cleaning stages.
func (p *Pipeline) Inspect() ([]SourceStructure, error) {
	var report []SourceStructure

	unicefPath := filepath.Join(p.paths.RawDir, IndicatorFile)
	unicefGrid, err := ingest.ReadCSVGrid(SourceUNICEF, unicefPath)
	if err != nil {
		return nil, err
	}
	report = append(report, SourceStructure{
		Source:    SourceUNICEF,
		Path:      unicefPath,
		Rows:      unicefGrid.RowCount(),
		HeaderRow: 0,
		Headers:   unicefGrid.Row(0),
		KeyColumns: map[string]string{
			"country":   "REF_AREA:Geographic area",
			"indicator": "INDICATOR:Indicator",
			"year":      "TIME_PERIOD:Time period",
			"value":     "OBS_VALUE:Observation Value",
		},
		CleaningNeeds: []string{
			"extract country names from 'CODE: Country Name' format",
			"extract indicator names from 'CODE: Indicator Name' format",
			fmt.Sprintf("filter for years %d-%d", p.cfg.MinYear, p.cfg.MaxYear),
			"convert observation values to numeric",
			"filter valid percentage values (0-100)",
			"keep most recent estimate per country-indicator pair",
		},
	})

	demoPath := filepath.Join(p.paths.RawDir, DemographicFile)
	demoGrid, err := ingest.ReadXLSXGrid(SourceDemographic, demoPath)
	if err != nil {
		return nil, err
	}
	demoStruct := SourceStructure{
		Source:     SourceDemographic,
		Path:       demoPath,
		Rows:       demoGrid.RowCount(),
		KeyColumns: make(map[string]string),
		CleaningNeeds: []string{
			fmt.Sprintf("filter for years %d-%d", p.cfg.MinYear, p.cfg.MaxYear),
			"convert births to numeric",
			fmt.Sprintf("slice to %d projected births as weights", p.cfg.WeightYear),
			"drop non-positive or missing births",
		},
	}
	if res, err := ingest.ResolveColumns(demoGrid); err == nil {
		demoStruct.HeaderRow = res.HeaderRow
		demoStruct.Headers = demoGrid.Row(res.HeaderRow)
		for label, col := range res.Columns {
			demoStruct.KeyColumns[label] = demoGrid.Cell(res.HeaderRow, col)
		}
	}
	report = append(report, demoStruct)

	statusPath := filepath.Join(p.paths.RawDir, StatusFile)
	statusGrid, err := ingest.ReadXLSXGrid(SourceStatus, statusPath)
	if err != nil {
		return nil, err
	}
	report = append(report, SourceStructure{
		Source:    SourceStatus,
		Path:      statusPath,
		Rows:      statusGrid.RowCount(),
		HeaderRow: 0,
		Headers:   statusGrid.Row(0),
		KeyColumns: map[string]string{
			"iso3":    "ISO3Code",
			"country": "OfficialName",
			"status":  "Status.U5MR",
		},
		CleaningNeeds: []string{
			"trim country names and ISO3 codes",
			"classify free-text status into on_track/off_track/unknown",
			"deduplicate countries",
		},
	})

	return report, nil
}
