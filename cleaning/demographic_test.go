package cleaning

import (
	"testing"

	"health-coverage/ingest"
)

// demographicGrid places the header at the anchor row position with enough
// metadata rows above it to exercise the real header discovery path.
func demographicGrid(dataRows ...[]string) *ingest.CellGrid {
	rows := make([][]string, 16)
	for i := range rows {
		rows[i] = []string{"World Population Prospects 2022"}
	}
	rows = append(rows, []string{
		"Index",
		"Region, subregion, country or area *",
		"ISO3 Alpha-code",
		"Year",
		"Births (thousands)",
	})
	rows = append(rows, dataRows...)
	return &ingest.CellGrid{Source: "demographic", Rows: rows}
}

func TestDemographicNormalizeWeightYearSlice(t *testing.T) {
	grid := demographicGrid(
		[]string{"1", "Kenya", "KEN", "2021", "900"},
		[]string{"2", "Kenya", "KEN", "2022", "1000"},
		[]string{"3", "Uganda", "UGA", "2022", "500"},
	)

	rows, stats, err := NewDemographicNormalizer(DefaultConfig()).Normalize(grid)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 (weight-year slice only)", len(rows))
	}

	byCountry := make(map[string]CleanBirthsRow)
	for _, r := range rows {
		byCountry[r.CountryName] = r
	}
	if got := byCountry["Kenya"].Births; got != 1000 {
		t.Errorf("Kenya births = %v, want 1000 (weight-year row, not 2021)", got)
	}
	if got := byCountry["Uganda"].Births; got != 500 {
		t.Errorf("Uganda births = %v, want 500", got)
	}
	if byCountry["Kenya"].ISO3Code != "KEN" {
		t.Errorf("Kenya ISO3 = %q, want KEN", byCountry["Kenya"].ISO3Code)
	}
	if stats.Reasons["outside_weight_year"] != 1 {
		t.Errorf("Reasons[outside_weight_year] = %d, want 1", stats.Reasons["outside_weight_year"])
	}
}

func TestDemographicNormalizeDegradedFallback(t *testing.T) {
	// No weight-year rows at all: every in-window year becomes eligible
	// instead of failing the run.
	grid := demographicGrid(
		[]string{"1", "Kenya", "KEN", "2020", "950"},
		[]string{"2", "Uganda", "UGA", "2019", "480"},
	)

	rows, _, err := NewDemographicNormalizer(DefaultConfig()).Normalize(grid)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 via degraded all-years fallback", len(rows))
	}
}

func TestDemographicNormalizeDrops(t *testing.T) {
	grid := demographicGrid(
		[]string{"1", "Kenya", "KEN", "2022", "1000"},
		[]string{"2", "Kenya", "KEN", "2022", "999"}, // duplicate country
		[]string{"3", "Narnia", "", "2022", "0"},     // non-positive births
		[]string{"4", "Atlantis", "", "2022", "..."}, // malformed births
		[]string{"5", "", "", "2022", "100"},         // empty country
		[]string{"6", "Uganda", "UGA", "not-a-year", "500"},
		[]string{"7", "Uganda", "UGA", "2010", "400"}, // out of window
	)

	rows, stats, err := NewDemographicNormalizer(DefaultConfig()).Normalize(grid)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].CountryName != "Kenya" || rows[0].Births != 1000 {
		t.Errorf("kept row = %+v, want Kenya/1000 (first occurrence wins)", rows[0])
	}

	wantReasons := map[string]int{
		DropDuplicate:     1,
		DropNonPositive:   1,
		DropMissingBirths: 1,
		DropEmptyCountry:  1,
		DropMalformedYear: 1,
		DropOutOfWindow:   1,
	}
	for reason, want := range wantReasons {
		if got := stats.Reasons[reason]; got != want {
			t.Errorf("Reasons[%s] = %d, want %d", reason, got, want)
		}
	}
}

func TestDemographicNormalizeUnresolvableColumns(t *testing.T) {
	rows := make([][]string, 18)
	for i := range rows {
		rows[i] = []string{"x", "y"}
	}
	grid := &ingest.CellGrid{Source: "demographic", Rows: rows}

	_, _, err := NewDemographicNormalizer(DefaultConfig()).Normalize(grid)
	if err == nil {
		t.Fatal("Normalize on an unrecognizable workbook: want error, got nil")
	}
}

func TestParseYearFloatFormatted(t *testing.T) {
	tests := []struct {
		cell string
		year int
		ok   bool
	}{
		{"2022", 2022, true},
		{"2022.0", 2022, true},
		{" 2021 ", 2021, true},
		{"2022.5", 0, false},
		{"", 0, false},
		{"Year", 0, false},
	}
	for _, tt := range tests {
		year, ok := parseYear(tt.cell)
		if year != tt.year || ok != tt.ok {
			t.Errorf("parseYear(%q) = (%d, %v), want (%d, %v)", tt.cell, year, ok, tt.year, tt.ok)
		}
	}
}

func TestParseBirthsThousandsSeparator(t *testing.T) {
	got, err := parseBirths("1,234.5")
	if err != nil {
		t.Fatalf("parseBirths: %v", err)
	}
	if got != 1234.5 {
		t.Errorf("parseBirths(\"1,234.5\") = %v, want 1234.5", got)
	}
}
