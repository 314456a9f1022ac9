package cleaning

import (
	"testing"

	"health-coverage/ingest"
)

func statusGrid(dataRows ...[]string) *ingest.CellGrid {
	rows := [][]string{{"ISO3Code", "OfficialName", "Status.U5MR"}}
	rows = append(rows, dataRows...)
	return &ingest.CellGrid{Source: "u5mr", Rows: rows}
}

func TestStatusNormalize(t *testing.T) {
	grid := statusGrid(
		[]string{"KEN", "Kenya", "Acceleration Needed"},
		[]string{"UGA", " Uganda ", "Achieved"},
		[]string{"TZA", "Tanzania", "On-track"},
		[]string{"", "", "Achieved"},                    // no country name
		[]string{"KEN", "Kenya", "Acceleration Needed"}, // duplicate
	)

	rows, stats, err := NewStatusNormalizer().Normalize(grid)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	byCountry := make(map[string]string)
	for _, r := range rows {
		byCountry[r.CountryName] = r.U5MRStatus
	}
	if byCountry["Kenya"] != StatusOffTrack {
		t.Errorf("Kenya = %q, want %q", byCountry["Kenya"], StatusOffTrack)
	}
	if byCountry["Uganda"] != StatusOnTrack {
		t.Errorf("Uganda = %q, want %q (names are trimmed)", byCountry["Uganda"], StatusOnTrack)
	}
	if byCountry["Tanzania"] != StatusOnTrack {
		t.Errorf("Tanzania = %q, want %q", byCountry["Tanzania"], StatusOnTrack)
	}
	if stats.Reasons[DropEmptyCountry] != 1 || stats.Reasons[DropDuplicate] != 1 {
		t.Errorf("Reasons = %v, want one empty-country and one duplicate drop", stats.Reasons)
	}
}

func TestStatusNormalizeMissingColumn(t *testing.T) {
	grid := &ingest.CellGrid{
		Source: "u5mr",
		Rows:   [][]string{{"ISO3Code", "OfficialName"}},
	}

	_, _, err := NewStatusNormalizer().Normalize(grid)
	if err == nil {
		t.Fatal("Normalize without the status column: want error, got nil")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Achieved", StatusOnTrack},
		{"On-track", StatusOnTrack},
		{"on-track to achieve target", StatusOnTrack},
		{"Acceleration Needed", StatusOffTrack},
		{"OFF-TRACK", StatusOffTrack},
		{"", StatusUnknown},
		{"   ", StatusUnknown},
		{"pending review", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ClassifyStatus(tt.raw); got != tt.want {
			t.Errorf("ClassifyStatus(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
