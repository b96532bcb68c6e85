package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
	"github.com/jmorales/etlwatch/internal/extract"
	"github.com/jmorales/etlwatch/internal/quality"
	"github.com/jmorales/etlwatch/internal/warehouse"
	"github.com/jmorales/etlwatch/pkg/types"
)

// Warehouse is the loading collaborator. Only datasets whose quality report
// passed are handed to it.
type Warehouse interface {
	Load(ctx context.Context, table string, ds *dataset.Dataset, strategy warehouse.Strategy) (int, error)
}

// Reporter is the analytics side of the warehouse. When the configured
// warehouse implements it, the run ends with a customer segmentation pass
// over the loaded data.
type Reporter interface {
	RFMSegments(ctx context.Context) ([]warehouse.RFMSegment, error)
}

// Alerter receives the finished run result.
type Alerter interface {
	Publish(ctx context.Context, status string, payload any) error
}

// Runner extracts every configured source, runs its quality checks, and
// optionally loads passing datasets and publishes the run result. Sources are
// processed one at a time; a failing source is recorded and the run moves on.
type Runner struct {
	cfg       *config.Config
	warehouse Warehouse
	alerter   Alerter
}

func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

func (r *Runner) WithWarehouse(w Warehouse) *Runner {
	r.warehouse = w
	return r
}

func (r *Runner) WithAlerter(a Alerter) *Runner {
	r.alerter = a
	return r
}

// Run executes one pipeline pass. Quality failures and per-source extraction
// errors mark the run FAILED but never abort it; the caller reads the result
// and decides what to do.
func (r *Runner) Run(ctx context.Context) *types.RunResult {
	result := &types.RunResult{
		Status:    types.RunSuccess,
		StartedAt: time.Now(),
	}

	for _, src := range r.cfg.Sources {
		result.Sources = append(result.Sources, r.runSource(ctx, src))
	}

	for i := range result.Sources {
		s := &result.Sources[i]
		result.TotalRecords += s.Records
		if s.Status == types.SourceError || s.Status == types.SourceQualityFailed {
			result.Status = types.RunFailed
		}
	}

	// Analytics phase: segment customers over the freshly loaded warehouse.
	// A failing report query is a warning, not a run failure.
	if reporter, ok := r.warehouse.(Reporter); ok && r.cfg.Warehouse != nil {
		segments, err := reporter.RFMSegments(ctx)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("rfm segmentation: %v", err))
		} else {
			result.Segments = segments
		}
	}

	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)
	result.DurationSeconds = result.Duration.Seconds()

	if r.alerter != nil {
		if err := r.alerter.Publish(ctx, result.Status, result); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("publish run result: %v", err))
		}
	}
	return result
}

func (r *Runner) runSource(ctx context.Context, src config.SourceConfig) types.SourceResult {
	res := types.SourceResult{Source: src.Name}

	ex, err := extract.New(src)
	if err != nil {
		res.Status = types.SourceError
		res.Error = err.Error()
		return res
	}

	if !ex.ValidateSource(ctx) {
		res.Status = types.SourceSkipped
		return res
	}

	ds, err := ex.Extract(ctx)
	if err != nil {
		res.Status = types.SourceError
		res.Error = err.Error()
		return res
	}
	res.Records = ds.Len()

	res.Report = quality.Check(src.Name, ds, src.Quality)
	if !res.Report.Passed {
		res.Status = types.SourceQualityFailed
		return res
	}
	res.Status = types.SourceOK

	if r.warehouse != nil && r.cfg.Warehouse != nil {
		if table, ok := r.cfg.Warehouse.Tables[src.Name]; ok {
			loaded, err := r.warehouse.Load(ctx, table, ds, strategyFor(table))
			if err != nil {
				res.Status = types.SourceError
				res.Error = fmt.Sprintf("load %s: %v", table, err)
				return res
			}
			res.Loaded = loaded
		}
	}
	return res
}

// Dimension tables are rebuilt on every run; fact tables accumulate.
func strategyFor(table string) warehouse.Strategy {
	if strings.HasPrefix(table, "dim_") {
		return warehouse.StrategyReplace
	}
	return warehouse.StrategyAppend
}
