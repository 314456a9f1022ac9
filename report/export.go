// Package report writes the pipeline's output artifacts: the merged dataset
// as a flat CSV and the assembled results as a JSON document. These files
// are the contract consumed by the external presentation layer.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"health-coverage/cleaning"
	"health-coverage/coverage"
)

// Output file names, fixed like the inputs.
const (
	MergedDatasetFile = "final_merged_dataset.csv"
	ResultsFile       = "analysis_results.json"
)

// mergedHeader is the column contract of the merged dataset export.
var mergedHeader = []string{
	"country_name", "iso3_code", "indicator", "year",
	"coverage_value", "births_2022", "u5mr_status", "indicator_full_name",
}

// WriteMergedCSV writes the merged analysis table to dir/final_merged_dataset.csv.
func WriteMergedCSV(dir string, rows []cleaning.MergedRow) (string, error) {
	path := filepath.Join(dir, MergedDatasetFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("unable to create merged dataset: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(mergedHeader); err != nil {
		return "", err
	}
	for _, r := range rows {
		record := []string{
			r.CountryName,
			r.ISO3Code,
			r.Indicator,
			strconv.Itoa(r.Year),
			formatFloat(r.CoverageValue),
			formatFloat(r.Births),
			r.U5MRStatus,
			r.IndicatorFullName,
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("unable to write merged dataset: %w", err)
	}
	return path, nil
}

// WriteResultsJSON writes the assembled results to dir/analysis_results.json.
func WriteResultsJSON(dir string, results *coverage.Results) (string, error) {
	path := filepath.Join(dir, ResultsFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("unable to create results file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", fmt.Errorf("unable to write results: %w", err)
	}
	return path, nil
}

// WriteCleanedArtifacts writes the per-source cleaned tables under dir,
// mirroring the intermediate artifacts of the load phase.
func WriteCleanedArtifacts(dir string, cov []cleaning.CleanCoverageRow, births []cleaning.CleanBirthsRow, status []cleaning.CleanStatusRow) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "unicef_cleaned.csv"),
		[]string{"country_name", "iso3_code", "indicator", "indicator_full_name", "year", "coverage_value"},
		len(cov), func(i int) []string {
			r := cov[i]
			return []string{r.CountryName, r.ISO3Code, r.Indicator, r.IndicatorFullName,
				strconv.Itoa(r.Year), formatFloat(r.CoverageValue)}
		}); err != nil {
		return err
	}

	if err := writeCSV(filepath.Join(dir, "population_cleaned.csv"),
		[]string{"country_name", "iso3_code", "births_2022"},
		len(births), func(i int) []string {
			r := births[i]
			return []string{r.CountryName, r.ISO3Code, formatFloat(r.Births)}
		}); err != nil {
		return err
	}

	return writeCSV(filepath.Join(dir, "u5mr_cleaned.csv"),
		[]string{"country_name", "iso3_code", "u5mr_status"},
		len(status), func(i int) []string {
			r := status[i]
			return []string{r.CountryName, r.ISO3Code, r.U5MRStatus}
		})
}

func writeCSV(path string, header []string, n int, record func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
