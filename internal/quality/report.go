package quality

import (
	"github.com/jmorales/etlwatch/internal/config"
	"github.com/jmorales/etlwatch/internal/dataset"
)

// Report aggregates every check run against one dataset. Overall pass is the
// AND of the individual checks. Threshold violations live here as failed
// entries; they are never surfaced as errors.
type Report struct {
	Source       string              `json:"source"`
	TotalRecords int                 `json:"total_records"`
	Completeness *CompletenessResult `json:"completeness,omitempty"`
	Duplicates   *DuplicatesResult   `json:"duplicates,omitempty"`
	Types        *TypesResult        `json:"types,omitempty"`
	Passed       bool                `json:"passed"`
}

// Check runs the checks configured for a source against its dataset. The
// dataset is read-only to every check; running Check twice on the same input
// yields identical reports.
func Check(name string, ds *dataset.Dataset, cfg config.QualityConfig) *Report {
	rep := &Report{
		Source:       name,
		TotalRecords: ds.Len(),
		Passed:       true,
	}

	required := cfg.RequiredColumns
	if len(required) == 0 {
		required = ds.Columns
	}
	completeness := CheckCompleteness(ds, required, cfg.NullThresholdOrDefault())
	rep.Completeness = &completeness

	duplicates := CheckDuplicates(ds, cfg.KeyColumns, cfg.DuplicateThresholdOrDefault())
	rep.Duplicates = &duplicates

	if len(cfg.ExpectedTypes) > 0 {
		types := CheckTypes(ds, cfg.ExpectedTypes)
		rep.Types = &types
	}

	rep.Passed = completeness.Passed && duplicates.Passed &&
		(rep.Types == nil || rep.Types.Passed)
	return rep
}
