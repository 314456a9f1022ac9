package cleaning

import "strings"

// Merge joins the three normalized tables on country identity.
//
// Step 1 inner-joins coverage with births on exact trimmed country name, so
// naming inconsistencies across sources silently drop unmatched countries.
// Step 2 left-joins the result with the status classification; unmatched
// rows keep u5mr_status = unknown. Partial matches are expected behavior:
// the returned JoinStats are the only signal of attrition, and callers
// decide whether a zero-row stage is worth a warning.
//
// Output order follows the coverage input order, so identical inputs yield
// identical merged output.
func Merge(coverage []CleanCoverageRow, births []CleanBirthsRow, status []CleanStatusRow) ([]MergedRow, JoinStats) {
	stats := JoinStats{
		CoverageRows: len(coverage),
		BirthsRows:   len(births),
		StatusRows:   len(status),
	}

	birthsByCountry := make(map[string]CleanBirthsRow, len(births))
	for _, b := range births {
		key := strings.TrimSpace(b.CountryName)
		if _, exists := birthsByCountry[key]; !exists {
			birthsByCountry[key] = b
		}
	}

	statusByCountry := make(map[string]string, len(status))
	for _, s := range status {
		key := strings.TrimSpace(s.CountryName)
		if _, exists := statusByCountry[key]; !exists {
			statusByCountry[key] = s.U5MRStatus
		}
	}

	var merged []MergedRow
	for _, c := range coverage {
		key := strings.TrimSpace(c.CountryName)

		b, ok := birthsByCountry[key]
		if !ok {
			continue
		}
		stats.AfterInnerJoin++

		u5mr, ok := statusByCountry[key]
		if !ok || u5mr == "" {
			u5mr = StatusUnknown
		}
		if u5mr == StatusUnknown {
			stats.StatusUnknown++
		} else {
			stats.StatusMatched++
		}

		merged = append(merged, MergedRow{
			CountryName:       key,
			ISO3Code:          c.ISO3Code,
			Indicator:         c.Indicator,
			IndicatorFullName: c.IndicatorFullName,
			Year:              c.Year,
			CoverageValue:     c.CoverageValue,
			Births:            b.Births,
			U5MRStatus:        u5mr,
		})
	}
	stats.AfterStatusJoin = len(merged)

	return merged, stats
}
