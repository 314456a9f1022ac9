// Package coverage computes births-weighted and simple coverage statistics
// over the merged analysis table and assembles the exported results object.
package coverage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"health-coverage/cleaning"
)

// Grouping keys accepted by Aggregate.
const (
	KeyIndicator = "indicator"
	KeyStatus    = "u5mr_status"
)

// ErrZeroWeight is returned when a weighted mean is requested over zero
// total weight. The aggregator never constructs such a group because the
// pre-filter guarantees positive weights, but the guard stays explicit.
var ErrZeroWeight = errors.New("weighted mean undefined: total weight is zero")

// AggregateResult holds the statistics for one group slice. Computed fresh
// each run; never mutated after construction.
type AggregateResult struct {
	BirthsWeightedAvg float64 `json:"births_weighted_avg"`
	SimpleAvg         float64 `json:"simple_avg"`
	TotalBirths       float64 `json:"total_births"`
	NumCountries      int     `json:"num_countries"`
	MinCoverage       float64 `json:"min_coverage"`
	MaxCoverage       float64 `json:"max_coverage"`
}

// FilterValid removes rows that fail the aggregation pre-filter: coverage
// must be in [0,100] and births must be positive. A row failing the filter
// is excluded from every aggregate, not just the undefined statistic.
func FilterValid(rows []cleaning.MergedRow) (valid []cleaning.MergedRow, dropped int) {
	for _, r := range rows {
		if r.CoverageValue < 0 || r.CoverageValue > 100 || r.Births <= 0 {
			dropped++
			continue
		}
		valid = append(valid, r)
	}
	return valid, dropped
}

// Aggregate groups the merged rows by the given keys (none, indicator, or
// indicator+status) and computes per-group statistics. Rows with unknown
// status are excluded whenever status is a grouping key; they still count
// in ungrouped and indicator-only aggregates.
//
// Group keys in the returned map are the grouping values joined with "|",
// or "all" for the empty grouping.
func Aggregate(rows []cleaning.MergedRow, keys ...string) (map[string]AggregateResult, error) {
	for _, k := range keys {
		if k != KeyIndicator && k != KeyStatus {
			return nil, fmt.Errorf("unsupported grouping key %q", k)
		}
	}

	groupStatus := containsKey(keys, KeyStatus)

	groups := make(map[string][]cleaning.MergedRow)
	for _, r := range rows {
		if groupStatus && r.U5MRStatus == cleaning.StatusUnknown {
			continue
		}
		groups[groupKey(r, keys)] = append(groups[groupKey(r, keys)], r)
	}

	results := make(map[string]AggregateResult, len(groups))
	for key, members := range groups {
		agg, err := computeAggregate(members)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", key, err)
		}
		results[key] = agg
	}
	return results, nil
}

// GroupKeys returns the sorted keys of an aggregate map, for deterministic
// iteration in reports.
func GroupKeys(m map[string]AggregateResult) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func groupKey(r cleaning.MergedRow, keys []string) string {
	if len(keys) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		switch k {
		case KeyIndicator:
			parts = append(parts, r.Indicator)
		case KeyStatus:
			parts = append(parts, r.U5MRStatus)
		}
	}
	return strings.Join(parts, "|")
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// computeAggregate computes the statistics for one non-empty group. The
// weighted sum accumulates in decimal so large births weights do not erode
// the coverage precision.
func computeAggregate(rows []cleaning.MergedRow) (AggregateResult, error) {
	if len(rows) == 0 {
		return AggregateResult{}, ErrZeroWeight
	}

	weightedSum := decimal.Zero
	totalWeight := decimal.Zero
	simpleSum := 0.0
	minCov := rows[0].CoverageValue
	maxCov := rows[0].CoverageValue
	countries := make(map[string]bool, len(rows))

	for _, r := range rows {
		c := decimal.NewFromFloat(r.CoverageValue)
		w := decimal.NewFromFloat(r.Births)
		weightedSum = weightedSum.Add(c.Mul(w))
		totalWeight = totalWeight.Add(w)

		simpleSum += r.CoverageValue
		if r.CoverageValue < minCov {
			minCov = r.CoverageValue
		}
		if r.CoverageValue > maxCov {
			maxCov = r.CoverageValue
		}
		countries[r.CountryName] = true
	}

	if totalWeight.IsZero() {
		return AggregateResult{}, ErrZeroWeight
	}

	weighted, _ := weightedSum.Div(totalWeight).Float64()
	births, _ := totalWeight.Float64()

	return AggregateResult{
		BirthsWeightedAvg: weighted,
		SimpleAvg:         simpleSum / float64(len(rows)),
		TotalBirths:       births,
		NumCountries:      len(countries),
		MinCoverage:       minCov,
		MaxCoverage:       maxCov,
	}, nil
}

// WeightedMean computes sum(v*w)/sum(w) over parallel slices. Exposed for
// callers that need the bare definition without group bookkeeping.
func WeightedMean(values, weights []float64) (float64, error) {
	if len(values) != len(weights) {
		return 0, fmt.Errorf("values and weights differ in length: %d vs %d", len(values), len(weights))
	}
	num := decimal.Zero
	den := decimal.Zero
	for i := range values {
		num = num.Add(decimal.NewFromFloat(values[i]).Mul(decimal.NewFromFloat(weights[i])))
		den = den.Add(decimal.NewFromFloat(weights[i]))
	}
	if den.IsZero() {
		return 0, ErrZeroWeight
	}
	out, _ := num.Div(den).Float64()
	return out, nil
}
