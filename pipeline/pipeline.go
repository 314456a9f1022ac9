// Package pipeline wires the full analysis run: raw sources -> normalizers
// -> merge -> aggregation -> results. Data flows strictly one direction and
// every run recomputes from the raw inputs.
package pipeline

import (
	"log/slog"
	"path/filepath"

	"health-coverage/cleaning"
	"health-coverage/coverage"
	"health-coverage/ingest"
)

// Fixed input file identities. Only the base directory is configurable.
const (
	IndicatorFile   = "fusion_GLOBAL_DATAFLOW_UNICEF_1.0_.MNCH_ANC4+MNCH_SAB..csv"
	DemographicFile = "WPP2022_GEN_F01_DEMOGRAPHIC_INDICATORS_COMPACT_REV1.xlsx"
	StatusFile      = "On-track and off-track countries.xlsx"
)

// Logical source names used in errors, stats, and logs.
const (
	SourceUNICEF      = "unicef"
	SourceDemographic = "demographic"
	SourceStatus      = "u5mr"
)

// Paths locates the raw inputs and the output directories.
type Paths struct {
	RawDir       string
	ProcessedDir string
	OutputDir    string
}

// RunStats collects the attrition counts of every stage of one run.
type RunStats struct {
	UNICEF      cleaning.StageStats `json:"unicef"`
	Demographic cleaning.StageStats `json:"demographic"`
	Status      cleaning.StageStats `json:"u5mr"`
	Join        cleaning.JoinStats  `json:"join"`
	Prefiltered int                 `json:"prefiltered"`
}

// RunOutput is everything a single pipeline invocation produces.
type RunOutput struct {
	Coverage []cleaning.CleanCoverageRow
	Births   []cleaning.CleanBirthsRow
	Status   []cleaning.CleanStatusRow
	Merged   []cleaning.MergedRow
	Results  *coverage.Results
	Stats    RunStats
}

// Pipeline executes the cleaning, merge, and aggregation stages.
type Pipeline struct {
	cfg    cleaning.Config
	paths  Paths
	logger *slog.Logger
}

// New creates a pipeline over the given acceptance window and directories.
func New(cfg cleaning.Config, paths Paths, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, paths: paths, logger: logger}
}

// Run executes the complete batch: load, normalize, merge, aggregate.
// Structural failures (missing files or columns) abort; single-row damage is
// dropped and counted.
func (p *Pipeline) Run() (*RunOutput, error) {
	out := &RunOutput{}

	unicefGrid, err := ingest.ReadCSVGrid(SourceUNICEF, filepath.Join(p.paths.RawDir, IndicatorFile))
	if err != nil {
		return nil, err
	}
	demoGrid, err := ingest.ReadXLSXGrid(SourceDemographic, filepath.Join(p.paths.RawDir, DemographicFile))
	if err != nil {
		return nil, err
	}
	statusGrid, err := ingest.ReadXLSXGrid(SourceStatus, filepath.Join(p.paths.RawDir, StatusFile))
	if err != nil {
		return nil, err
	}

	out.Coverage, out.Stats.UNICEF, err = cleaning.NewUNICEFNormalizer(p.cfg).Normalize(unicefGrid)
	if err != nil {
		return nil, err
	}
	p.logStage(out.Stats.UNICEF)

	out.Births, out.Stats.Demographic, err = cleaning.NewDemographicNormalizer(p.cfg).Normalize(demoGrid)
	if err != nil {
		return nil, err
	}
	p.logStage(out.Stats.Demographic)

	out.Status, out.Stats.Status, err = cleaning.NewStatusNormalizer().Normalize(statusGrid)
	if err != nil {
		return nil, err
	}
	p.logStage(out.Stats.Status)

	out.Merged, out.Stats.Join = cleaning.Merge(out.Coverage, out.Births, out.Status)
	p.logger.Info("merge completed",
		"coverage_rows", out.Stats.Join.CoverageRows,
		"births_rows", out.Stats.Join.BirthsRows,
		"status_rows", out.Stats.Join.StatusRows,
		"after_inner_join", out.Stats.Join.AfterInnerJoin,
		"after_status_join", out.Stats.Join.AfterStatusJoin,
	)
	if out.Stats.Join.AfterInnerJoin == 0 {
		// Observability only, never raised
		p.logger.Warn("empty join: no countries matched between coverage and births sources")
	}

	valid, dropped := coverage.FilterValid(out.Merged)
	out.Stats.Prefiltered = dropped
	if dropped > 0 {
		p.logger.Warn("rows excluded by aggregation pre-filter", "dropped", dropped, "kept", len(valid))
	}

	out.Results, err = coverage.Assemble(out.Merged, p.cfg)
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (p *Pipeline) logStage(stats cleaning.StageStats) {
	p.logger.Info("stage completed",
		"source", stats.Source,
		"input", stats.Input,
		"kept", stats.Kept,
		"dropped", stats.Dropped,
	)
}
