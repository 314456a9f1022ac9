// Coverage CLI - Maternal and Newborn Health Coverage Analysis
//
// Usage:
//
//	coverage analyze --raw-dir data/raw [options]
//	coverage inspect --raw-dir data/raw
//	coverage serve --raw-dir data/raw --port 8080
//	coverage export clickhouse --raw-dir data/raw
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"health-coverage/api"
	"health-coverage/cleaning"
	"health-coverage/coverage"
	"health-coverage/db/clickhouse"
	"health-coverage/pipeline"
	"health-coverage/pkg/platform"
	"health-coverage/report"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "coverage",
		Usage:   "Births-weighted health service coverage analysis for on-track and off-track countries",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "raw-dir",
				Value:   "data/raw",
				Usage:   "Directory holding the three raw source files",
				EnvVars: []string{"COVERAGE_RAW_DIR"},
			},
			&cli.IntFlag{
				Name:    "min-year",
				Value:   2018,
				Usage:   "Oldest accepted observation year",
				EnvVars: []string{"COVERAGE_MIN_YEAR"},
			},
			&cli.IntFlag{
				Name:    "max-year",
				Value:   2022,
				Usage:   "Newest accepted observation year",
				EnvVars: []string{"COVERAGE_MAX_YEAR"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "health_coverage",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
		},

		Commands: []*cli.Command{
			analyzeCommand(),
			inspectCommand(),
			serveCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func configFromContext(c *cli.Context) cleaning.Config {
	cfg := cleaning.DefaultConfig()
	cfg.MinYear = c.Int("min-year")
	cfg.MaxYear = c.Int("max-year")
	return cfg
}

func pathsFromContext(c *cli.Context) pipeline.Paths {
	return pipeline.Paths{
		RawDir:       c.String("raw-dir"),
		ProcessedDir: c.String("processed-dir"),
		OutputDir:    c.String("output-dir"),
	}
}

// =============================================================================
// ANALYZE COMMAND
// =============================================================================

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Run the full pipeline: clean, merge, aggregate, export",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Value:   "data/output",
				Usage:   "Directory for the merged dataset and results JSON",
				EnvVars: []string{"COVERAGE_OUTPUT_DIR"},
			},
			&cli.StringFlag{
				Name:    "processed-dir",
				Value:   "data/processed",
				Usage:   "Directory for intermediate cleaned tables",
				EnvVars: []string{"COVERAGE_PROCESSED_DIR"},
			},
			&cli.BoolFlag{
				Name:  "save-processed",
				Value: false,
				Usage: "Also write per-source cleaned tables",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	logger := platform.InitLogger()
	cfg := configFromContext(c)
	paths := pathsFromContext(c)

	p := pipeline.New(cfg, paths, logger)
	out, err := p.Run()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "📊 Cleaned %d coverage, %d births, %d status rows\n",
		len(out.Coverage), len(out.Births), len(out.Status))
	fmt.Fprintf(os.Stderr, "🔗 Merged dataset: %d rows across %d countries\n",
		len(out.Merged), out.Results.Summary.UniqueCountries)

	if err := os.MkdirAll(paths.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	csvPath, err := report.WriteMergedCSV(paths.OutputDir, out.Merged)
	if err != nil {
		return err
	}
	jsonPath, err := report.WriteResultsJSON(paths.OutputDir, out.Results)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %s and %s\n", csvPath, jsonPath)

	if c.Bool("save-processed") {
		if err := report.WriteCleanedArtifacts(paths.ProcessedDir, out.Coverage, out.Births, out.Status); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote cleaned tables to %s\n", paths.ProcessedDir)
	}

	switch c.String("format") {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Results)
	default:
		printResultsTable(out)
		return nil
	}
}

func printResultsTable(out *pipeline.RunOutput) {
	results := out.Results

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║              🌍 COVERAGE ANALYSIS RESULTS                     ║")
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	for _, indicator := range coverage.GroupKeys(results.OverallCoverage) {
		agg := results.OverallCoverage[indicator]
		fmt.Printf("║  %-14s weighted %6.2f%%  simple %6.2f%%  n=%-6d ║\n",
			truncate(indicator, 14), agg.BirthsWeightedAvg, agg.SimpleAvg, agg.NumCountries)
	}
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Println("║  BY U5MR STATUS                                               ║")
	for _, status := range sortedStatuses(results) {
		byIndicator := results.ByStatus[status]
		for _, indicator := range coverage.GroupKeys(byIndicator) {
			agg := byIndicator[indicator]
			fmt.Printf("║  %-9s %-12s weighted %6.2f%%  countries %-5d ║\n",
				truncate(status, 9), truncate(indicator, 12), agg.BirthsWeightedAvg, agg.NumCountries)
		}
	}
	fmt.Println("╠══════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Records: %-6d Countries: %-5d Years: %d-%-9d    ║\n",
		results.Summary.TotalRecords,
		results.Summary.UniqueCountries,
		results.Summary.YearRange.Min,
		results.Summary.YearRange.Max)
	fmt.Printf("║  Coverage mean %6.2f%%  median %6.2f%%  std %6.2f%%       ║\n",
		results.Summary.CoverageStatistics.Mean,
		results.Summary.CoverageStatistics.Median,
		results.Summary.CoverageStatistics.Std)
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
}

func sortedStatuses(results *coverage.Results) []string {
	statuses := make([]string, 0, len(results.ByStatus))
	for s := range results.ByStatus {
		statuses = append(statuses, s)
	}
	// on_track before off_track reads better; map order is random
	for i := 0; i < len(statuses); i++ {
		for j := i + 1; j < len(statuses); j++ {
			if statuses[j] < statuses[i] {
				statuses[i], statuses[j] = statuses[j], statuses[i]
			}
		}
	}
	return statuses
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// =============================================================================
// INSPECT COMMAND
// =============================================================================

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Show the discovered structure of the raw sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "table",
				Usage:   "Output format (table, json)",
			},
		},
		Action: runInspect,
	}
}

func runInspect(c *cli.Context) error {
	logger := platform.InitLogger()
	p := pipeline.New(configFromContext(c), pathsFromContext(c), logger)

	structures, err := p.Inspect()
	if err != nil {
		return fmt.Errorf("inspection failed: %w", err)
	}

	if c.String("format") == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(structures)
	}

	for _, s := range structures {
		fmt.Printf("\n📋 %s (%s)\n", strings.ToUpper(s.Source), s.Path)
		fmt.Printf("   rows: %d, header row: %d\n", s.Rows, s.HeaderRow)
		fmt.Printf("   key columns:\n")
		for label, col := range s.KeyColumns {
			fmt.Printf("     - %s: %s\n", label, col)
		}
		fmt.Printf("   cleaning needs:\n")
		for _, need := range s.CleaningNeeds {
			fmt.Printf("     • %s\n", need)
		}
	}
	return nil
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the pipeline once and serve the results over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"COVERAGE_PORT"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Value:   "*",
				Usage:   "Comma-separated list of allowed CORS origins",
				EnvVars: []string{"COVERAGE_CORS_ORIGINS"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	logger := platform.InitLogger()
	p := pipeline.New(configFromContext(c), pathsFromContext(c), logger)

	out, err := p.Run()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	corsOrigins := strings.Split(c.String("cors-origins"), ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}

	config := api.DefaultConfig()
	config.Port = c.Int("port")
	config.CORSOrigins = corsOrigins

	server := api.NewServer(out.Results, out.Merged, config)
	return server.StartWithGracefulShutdown()
}

// =============================================================================
// EXPORT COMMAND
// =============================================================================

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export an analysis run to external storage",
		Subcommands: []*cli.Command{
			{
				Name:  "clickhouse",
				Usage: "Persist the merged dataset and aggregates to ClickHouse",
				Action: func(c *cli.Context) error {
					logger := platform.InitLogger()
					p := pipeline.New(configFromContext(c), pathsFromContext(c), logger)

					out, err := p.Run()
					if err != nil {
						return fmt.Errorf("analysis failed: %w", err)
					}

					store, err := clickhouse.NewStore(&clickhouse.Config{
						Host:     c.String("clickhouse-host"),
						Port:     c.Int("clickhouse-port"),
						Database: c.String("clickhouse-database"),
						Username: c.String("clickhouse-user"),
						Password: c.String("clickhouse-password"),
					})
					if err != nil {
						return fmt.Errorf("failed to connect to ClickHouse: %w", err)
					}
					defer store.Close()

					ctx := context.Background()
					if err := store.EnsureSchema(ctx); err != nil {
						return err
					}
					if err := store.StoreRun(ctx, out.Results, out.Merged); err != nil {
						return fmt.Errorf("export failed: %w", err)
					}

					fmt.Fprintf(os.Stderr, "💾 Stored run %s (%d merged rows)\n",
						out.Results.RunID, len(out.Merged))
					return nil
				},
			},
		},
	}
}
