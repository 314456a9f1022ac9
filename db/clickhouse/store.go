// Package clickhouse persists coverage analysis runs to ClickHouse.
// The merged dataset and per-group aggregates are columnar-friendly, which
// makes repeated runs cheap to compare and query.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"health-coverage/cleaning"
	"health-coverage/coverage"
	"health-coverage/pkg/platform"
)

// Config holds ClickHouse connection configuration
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns default development configuration, overridable via
// CLICKHOUSE_* environment variables
func DefaultConfig() *Config {
	return &Config{
		Host:     platform.GetEnv("CLICKHOUSE_HOST", "localhost"),
		Port:     platform.GetEnvInt("CLICKHOUSE_PORT", 9000),
		Database: platform.GetEnv("CLICKHOUSE_DATABASE", "health_coverage"),
		Username: platform.GetEnv("CLICKHOUSE_USER", "default"),
		Password: platform.GetEnv("CLICKHOUSE_PASSWORD", ""),
		Debug:    platform.GetEnvBool("CLICKHOUSE_DEBUG", false),
	}
}

// Store writes analysis runs to ClickHouse
type Store struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewStore creates a new ClickHouse analysis store
func NewStore(cfg *Config) (*Store, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &Store{conn: conn, cfg: cfg}, nil
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureSchema creates the run tables if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS coverage_runs (
			run_id UUID,
			generated_at DateTime64(3),
			min_year Int32,
			max_year Int32,
			merged_rows UInt32,
			unique_countries UInt32,
			total_births Float64,
			created_at DateTime64(3)
		) ENGINE = MergeTree() ORDER BY (generated_at, run_id)`,
		`CREATE TABLE IF NOT EXISTS coverage_merged_rows (
			run_id UUID,
			country_name String,
			iso3_code String,
			indicator String,
			indicator_full_name String,
			year Int32,
			coverage_value Float64,
			births_2022 Float64,
			u5mr_status LowCardinality(String),
			created_at DateTime64(3)
		) ENGINE = MergeTree() ORDER BY (run_id, indicator, country_name)`,
		`CREATE TABLE IF NOT EXISTS coverage_aggregates (
			run_id UUID,
			grouping LowCardinality(String),
			indicator String,
			u5mr_status LowCardinality(String),
			births_weighted_avg Decimal64(6),
			simple_avg Decimal64(6),
			total_births Float64,
			num_countries UInt32,
			min_coverage Float64,
			max_coverage Float64,
			created_at DateTime64(3)
		) ENGINE = MergeTree() ORDER BY (run_id, grouping, indicator, u5mr_status)`,
	}

	for _, stmt := range statements {
		if err := s.conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// =============================================================================
// RUN OPERATIONS
// =============================================================================

// InsertRun records the metadata of one analysis run.
func (s *Store) InsertRun(ctx context.Context, results *coverage.Results, mergedRows int) error {
	query := `
		INSERT INTO coverage_runs (
			run_id, generated_at, min_year, max_year,
			merged_rows, unique_countries, total_births, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	return s.conn.Exec(ctx, query,
		results.RunID,
		results.GeneratedAt,
		int32(results.MinYear),
		int32(results.MaxYear),
		uint32(mergedRows),
		uint32(results.Summary.UniqueCountries),
		results.Summary.TotalBirths,
		time.Now(),
	)
}

// BulkInsertMergedRows inserts the merged dataset of a run in one batch.
func (s *Store) BulkInsertMergedRows(ctx context.Context, runID uuid.UUID, rows []cleaning.MergedRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO coverage_merged_rows (
			run_id, country_name, iso3_code, indicator, indicator_full_name,
			year, coverage_value, births_2022, u5mr_status, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	for _, r := range rows {
		if err := batch.Append(
			runID, r.CountryName, r.ISO3Code, r.Indicator, r.IndicatorFullName,
			int32(r.Year), r.CoverageValue, r.Births, r.U5MRStatus, now,
		); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}

	return batch.Send()
}

// BulkInsertAggregates flattens the per-indicator and per-status aggregates
// of a run into the aggregates table.
func (s *Store) BulkInsertAggregates(ctx context.Context, results *coverage.Results) error {
	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO coverage_aggregates (
			run_id, grouping, indicator, u5mr_status,
			births_weighted_avg, simple_avg, total_births,
			num_countries, min_coverage, max_coverage, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	now := time.Now()
	appendAgg := func(grouping, indicator, status string, agg coverage.AggregateResult) error {
		return batch.Append(
			results.RunID, grouping, indicator, status,
			decimal.NewFromFloat(agg.BirthsWeightedAvg),
			decimal.NewFromFloat(agg.SimpleAvg),
			agg.TotalBirths,
			uint32(agg.NumCountries),
			agg.MinCoverage,
			agg.MaxCoverage,
			now,
		)
	}

	for _, indicator := range coverage.GroupKeys(results.OverallCoverage) {
		if err := appendAgg("indicator", indicator, "", results.OverallCoverage[indicator]); err != nil {
			return fmt.Errorf("failed to append to batch: %w", err)
		}
	}
	for status, byIndicator := range results.ByStatus {
		for _, indicator := range coverage.GroupKeys(byIndicator) {
			if err := appendAgg("indicator_status", indicator, status, byIndicator[indicator]); err != nil {
				return fmt.Errorf("failed to append to batch: %w", err)
			}
		}
	}

	return batch.Send()
}

// StoreRun persists a complete run: metadata, merged rows, and aggregates.
func (s *Store) StoreRun(ctx context.Context, results *coverage.Results, merged []cleaning.MergedRow) error {
	if err := s.InsertRun(ctx, results, len(merged)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if err := s.BulkInsertMergedRows(ctx, results.RunID, merged); err != nil {
		return fmt.Errorf("failed to insert merged rows: %w", err)
	}
	if err := s.BulkInsertAggregates(ctx, results); err != nil {
		return fmt.Errorf("failed to insert aggregates: %w", err)
	}
	return nil
}
