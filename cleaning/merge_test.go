package cleaning

import (
	"reflect"
	"testing"
)

func mergeFixture() ([]CleanCoverageRow, []CleanBirthsRow, []CleanStatusRow) {
	coverage := []CleanCoverageRow{
		{CountryName: "Kenya", ISO3Code: "KEN", Indicator: "MNCH_ANC4", IndicatorFullName: "ANC4", Year: 2021, CoverageValue: 70},
		{CountryName: "Kenya", ISO3Code: "KEN", Indicator: "MNCH_SAB", IndicatorFullName: "SAB", Year: 2020, CoverageValue: 60},
		{CountryName: "Uganda", ISO3Code: "UGA", Indicator: "MNCH_ANC4", IndicatorFullName: "ANC4", Year: 2019, CoverageValue: 55},
		{CountryName: "Atlantis", ISO3Code: "ATL", Indicator: "MNCH_ANC4", IndicatorFullName: "ANC4", Year: 2021, CoverageValue: 80},
	}
	births := []CleanBirthsRow{
		{CountryName: "Kenya", ISO3Code: "KEN", Births: 1000},
		{CountryName: "Uganda", ISO3Code: "UGA", Births: 500},
		{CountryName: "Tanzania", ISO3Code: "TZA", Births: 800},
	}
	status := []CleanStatusRow{
		{CountryName: "Kenya", ISO3Code: "KEN", U5MRStatus: StatusOnTrack},
	}
	return coverage, births, status
}

func TestMergeInnerThenLeftJoin(t *testing.T) {
	coverage, births, status := mergeFixture()

	merged, stats := Merge(coverage, births, status)

	// Atlantis has coverage but no births row, so it drops at the inner join.
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3", len(merged))
	}
	if stats.AfterInnerJoin != 3 || stats.AfterStatusJoin != 3 {
		t.Errorf("stats = %+v, want 3 rows after both joins", stats)
	}
	if stats.CoverageRows != 4 || stats.BirthsRows != 3 || stats.StatusRows != 1 {
		t.Errorf("input counts = %+v, want 4/3/1", stats)
	}

	for _, row := range merged {
		switch row.CountryName {
		case "Kenya":
			if row.U5MRStatus != StatusOnTrack {
				t.Errorf("Kenya status = %q, want %q", row.U5MRStatus, StatusOnTrack)
			}
			if row.Births != 1000 {
				t.Errorf("Kenya births = %v, want 1000", row.Births)
			}
		case "Uganda":
			// Left join: missing classification keeps the row with unknown.
			if row.U5MRStatus != StatusUnknown {
				t.Errorf("Uganda status = %q, want %q", row.U5MRStatus, StatusUnknown)
			}
		default:
			t.Errorf("unexpected country %q in merged output", row.CountryName)
		}
	}

	if stats.StatusMatched != 2 || stats.StatusUnknown != 1 {
		t.Errorf("status join stats = matched %d unknown %d, want 2/1",
			stats.StatusMatched, stats.StatusUnknown)
	}
}

func TestMergeAttritionBound(t *testing.T) {
	coverage, births, status := mergeFixture()
	merged, _ := Merge(coverage, births, status)

	distinct := make(map[string]bool)
	for _, c := range coverage {
		distinct[c.CountryName] = true
	}
	if len(merged) > len(coverage) {
		t.Errorf("merged rows %d exceed coverage rows %d", len(merged), len(coverage))
	}
	for _, m := range merged {
		if !distinct[m.CountryName] {
			t.Errorf("merged country %q not present in coverage input", m.CountryName)
		}
	}
}

func TestMergeDeterministic(t *testing.T) {
	coverage, births, status := mergeFixture()

	first, firstStats := Merge(coverage, births, status)
	second, secondStats := Merge(coverage, births, status)

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different merged output")
	}
	if firstStats != secondStats {
		t.Errorf("join stats differ across runs: %+v vs %+v", firstStats, secondStats)
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	merged, stats := Merge(nil, nil, nil)
	if len(merged) != 0 {
		t.Fatalf("len(merged) = %d, want 0", len(merged))
	}
	if stats.AfterInnerJoin != 0 || stats.AfterStatusJoin != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestMergeTrimsCountryKeys(t *testing.T) {
	coverage := []CleanCoverageRow{
		{CountryName: " Kenya ", ISO3Code: "KEN", Indicator: "MNCH_ANC4", Year: 2021, CoverageValue: 70},
	}
	births := []CleanBirthsRow{
		{CountryName: "Kenya", ISO3Code: "KEN", Births: 1000},
	}

	merged, _ := Merge(coverage, births, nil)
	if len(merged) != 1 {
		t.Fatalf("len(merged) = %d, want 1 (keys are trimmed before joining)", len(merged))
	}
	if merged[0].CountryName != "Kenya" {
		t.Errorf("CountryName = %q, want trimmed %q", merged[0].CountryName, "Kenya")
	}
}
