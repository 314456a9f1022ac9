// Package cleaning normalizes the three raw public-health sources into a
// common row shape and merges them into the unified analysis table. This is
// the load phase of the pipeline: everything downstream consumes its output.
package cleaning

// U5MR status classes derived from the free-text mortality-progress status.
const (
	StatusOnTrack  = "on_track"
	StatusOffTrack = "off_track"
	StatusUnknown  = "unknown"
)

// Sentinel code used when a composite "CODE: Name" field has no code part.
const UnknownCode = "UNKNOWN"

// Config bounds the acceptance window for observations. This is the only
// tunable surface of the core pipeline.
type Config struct {
	MinYear int // Oldest accepted observation year (inclusive)
	MaxYear int // Newest accepted observation year (inclusive)

	// WeightYear selects the demographic slice used as aggregation weights.
	// When the slice is empty the normalizer degrades to all in-window years.
	WeightYear int
}

// DefaultConfig returns the default 2018-2022 acceptance window.
func DefaultConfig() Config {
	return Config{
		MinYear:    2018,
		MaxYear:    2022,
		WeightYear: 2022,
	}
}

// CleanCoverageRow is one indicator observation after normalization:
// exactly one row per (country, indicator), carrying the most recent
// in-window estimate.
type CleanCoverageRow struct {
	CountryName       string  `json:"country_name"`
	ISO3Code          string  `json:"iso3_code"`
	Indicator         string  `json:"indicator"`
	IndicatorFullName string  `json:"indicator_full_name"`
	Year              int     `json:"year"`
	CoverageValue     float64 `json:"coverage_value"`
}

// CleanBirthsRow holds a country's projected births (in thousands) used as
// the aggregation weight. Sourced from the weight-year slice of the
// demographic data; always positive.
type CleanBirthsRow struct {
	CountryName string  `json:"country_name"`
	ISO3Code    string  `json:"iso3_code"`
	Births      float64 `json:"births_2022"`
}

// CleanStatusRow classifies a country's progress toward under-five
// mortality targets.
type CleanStatusRow struct {
	CountryName string `json:"country_name"`
	ISO3Code    string `json:"iso3_code"`
	U5MRStatus  string `json:"u5mr_status"`
}

// MergedRow is the unified analysis entity: coverage joined with births,
// optionally annotated with mortality status. Immutable once produced;
// the sole input to aggregation.
type MergedRow struct {
	CountryName       string  `json:"country_name"`
	ISO3Code          string  `json:"iso3_code"`
	Indicator         string  `json:"indicator"`
	IndicatorFullName string  `json:"indicator_full_name"`
	Year              int     `json:"year"`
	CoverageValue     float64 `json:"coverage_value"`
	Births            float64 `json:"births_2022"`
	U5MRStatus        string  `json:"u5mr_status"`
}

// Drop reasons tracked per stage. Cleaning drops rows silently; the counts
// are returned so callers and tests can assert on attrition instead of
// parsing log output.
const (
	DropOutOfWindow    = "out_of_window"
	DropMalformedYear  = "malformed_year"
	DropMalformedValue = "malformed_value"
	DropOutOfRange     = "out_of_range"
	DropDuplicate      = "duplicate"
	DropSuperseded     = "superseded"
	DropMissingBirths  = "missing_births"
	DropNonPositive    = "non_positive_births"
	DropEmptyCountry   = "empty_country"
)

// StageStats reports row attrition for one normalization stage.
type StageStats struct {
	Source  string         `json:"source"`
	Input   int            `json:"input"`
	Kept    int            `json:"kept"`
	Dropped int            `json:"dropped"`
	Reasons map[string]int `json:"reasons,omitempty"`
}

func newStageStats(source string) StageStats {
	return StageStats{Source: source, Reasons: make(map[string]int)}
}

func (s *StageStats) drop(reason string) {
	s.Dropped++
	s.Reasons[reason]++
}

// JoinStats reports row counts at each merge stage. Partial matches are
// expected behavior, not errors, so the counts are the only signal of
// join attrition.
type JoinStats struct {
	CoverageRows    int `json:"coverage_rows"`
	BirthsRows      int `json:"births_rows"`
	StatusRows      int `json:"status_rows"`
	AfterInnerJoin  int `json:"after_inner_join"`
	AfterStatusJoin int `json:"after_status_join"`
	StatusMatched   int `json:"status_matched"`
	StatusUnknown   int `json:"status_unknown"`
}
