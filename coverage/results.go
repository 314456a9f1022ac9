package coverage

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"health-coverage/cleaning"
)

// Results is the structure handed to the presentation layer. It is the sole
// contract between the pipeline and the dashboard/report collaborators, so
// every level is a fixed record rather than a free-form mapping.
type Results struct {
	RunID       uuid.UUID `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	MinYear     int       `json:"min_year"`
	MaxYear     int       `json:"max_year"`

	OverallCoverage      map[string]AggregateResult            `json:"overall_coverage"`
	ByStatus             map[string]map[string]AggregateResult `json:"by_status"`
	ByIndicator          map[string]IndicatorBreakdown         `json:"by_indicator"`
	Summary              Summary                               `json:"summary"`
	DataForVisualization []VizRow                              `json:"data_for_visualization"`
}

// IndicatorBreakdown is the per-indicator view with a nested status
// comparison.
type IndicatorBreakdown struct {
	OverallWeighted  float64                    `json:"overall_weighted"`
	OverallSimple    float64                    `json:"overall_simple"`
	StatusComparison map[string]AggregateResult `json:"status_comparison"`
	TotalCountries   int                        `json:"total_countries"`
	TotalBirths      float64                    `json:"total_births"`
}

// Summary holds global descriptive statistics over the filtered dataset.
type Summary struct {
	TotalRecords       int            `json:"total_records"`
	UniqueCountries    int            `json:"unique_countries"`
	YearRange          YearRange      `json:"year_range"`
	Indicators         []string       `json:"indicators"`
	StatusDistribution map[string]int `json:"u5mr_status_distribution"`
	TotalBirths        float64        `json:"total_births"`
	CoverageStatistics CoverageStats  `json:"coverage_statistics"`
}

// YearRange is the observed span of estimate years in the merged data.
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// CoverageStats are descriptive statistics of the coverage values.
type CoverageStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// VizRow is one weighted-average point per (indicator, status) pair,
// flattened for charting.
type VizRow struct {
	Indicator     string  `json:"indicator"`
	U5MRStatus    string  `json:"u5mr_status"`
	CoverageValue float64 `json:"coverage_value"`
	NumCountries  int     `json:"num_countries"`
	TotalBirths   float64 `json:"total_births"`
}

// Assemble runs the full aggregation over the merged table and packages the
// results. Rows failing the pre-filter are excluded from every slice.
func Assemble(rows []cleaning.MergedRow, cfg cleaning.Config) (*Results, error) {
	valid, _ := FilterValid(rows)

	overall, err := Aggregate(valid, KeyIndicator)
	if err != nil {
		return nil, err
	}

	byPair, err := Aggregate(valid, KeyIndicator, KeyStatus)
	if err != nil {
		return nil, err
	}

	results := &Results{
		RunID:                uuid.New(),
		GeneratedAt:          time.Now().UTC(),
		MinYear:              cfg.MinYear,
		MaxYear:              cfg.MaxYear,
		OverallCoverage:      overall,
		ByStatus:             make(map[string]map[string]AggregateResult),
		ByIndicator:          make(map[string]IndicatorBreakdown),
		Summary:              summarize(valid),
		DataForVisualization: make([]VizRow, 0, len(byPair)),
	}

	// Pivot the (indicator, status) aggregates into both nested views
	for _, key := range GroupKeys(byPair) {
		indicator, status, ok := splitPairKey(key)
		if !ok {
			continue
		}
		agg := byPair[key]

		if _, exists := results.ByStatus[status]; !exists {
			results.ByStatus[status] = make(map[string]AggregateResult)
		}
		results.ByStatus[status][indicator] = agg

		breakdown, exists := results.ByIndicator[indicator]
		if !exists {
			overallAgg := overall[indicator]
			breakdown = IndicatorBreakdown{
				OverallWeighted:  overallAgg.BirthsWeightedAvg,
				OverallSimple:    overallAgg.SimpleAvg,
				StatusComparison: make(map[string]AggregateResult),
				TotalCountries:   overallAgg.NumCountries,
				TotalBirths:      overallAgg.TotalBirths,
			}
		}
		breakdown.StatusComparison[status] = agg
		results.ByIndicator[indicator] = breakdown

		results.DataForVisualization = append(results.DataForVisualization, VizRow{
			Indicator:     indicator,
			U5MRStatus:    status,
			CoverageValue: agg.BirthsWeightedAvg,
			NumCountries:  agg.NumCountries,
			TotalBirths:   agg.TotalBirths,
		})
	}

	// Indicators with only unknown-status countries still get a breakdown
	for indicator, agg := range overall {
		if _, exists := results.ByIndicator[indicator]; !exists {
			results.ByIndicator[indicator] = IndicatorBreakdown{
				OverallWeighted:  agg.BirthsWeightedAvg,
				OverallSimple:    agg.SimpleAvg,
				StatusComparison: make(map[string]AggregateResult),
				TotalCountries:   agg.NumCountries,
				TotalBirths:      agg.TotalBirths,
			}
		}
	}

	return results, nil
}

func splitPairKey(key string) (indicator, status string, ok bool) {
	idx := strings.LastIndex(key, "|")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

// summarize computes the global descriptive statistics block.
func summarize(rows []cleaning.MergedRow) Summary {
	s := Summary{
		TotalRecords:       len(rows),
		StatusDistribution: make(map[string]int),
	}
	if len(rows) == 0 {
		return s
	}

	countries := make(map[string]bool)
	indicators := make(map[string]bool)
	values := make([]float64, 0, len(rows))
	births := 0.0
	s.YearRange = YearRange{Min: rows[0].Year, Max: rows[0].Year}

	for _, r := range rows {
		countries[r.CountryName] = true
		indicators[r.Indicator] = true
		values = append(values, r.CoverageValue)
		births += r.Births
		s.StatusDistribution[r.U5MRStatus]++
		if r.Year < s.YearRange.Min {
			s.YearRange.Min = r.Year
		}
		if r.Year > s.YearRange.Max {
			s.YearRange.Max = r.Year
		}
	}

	s.UniqueCountries = len(countries)
	s.TotalBirths = births
	for ind := range indicators {
		s.Indicators = append(s.Indicators, ind)
	}
	sort.Strings(s.Indicators)

	s.CoverageStatistics = CoverageStats{
		Mean:   mean(values),
		Median: median(values),
		Std:    stdDev(values),
		Min:    minOf(values),
		Max:    maxOf(values),
	}
	return s
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// stdDev is the sample standard deviation (n-1 denominator); 0 for a single
// observation.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
