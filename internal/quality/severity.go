package quality

// Centralized severity and message helpers for quality findings.
// Rules:
// - BLOCK for findings that make the dataset unloadable
// - WARN for threshold violations the caller may accept
// - INFO for advisory findings

const (
	SeverityInfo  = "INFO"
	SeverityWarn  = "WARN"
	SeverityBlock = "BLOCK"
)

// Finding kinds supported:
// "missing_column", "null_rate_exceeded", "duplicate_rate_exceeded",
// "type_mismatch", "empty_dataset"
func SeverityForFinding(kind string) string {
	switch kind {
	case "missing_column":
		return SeverityBlock
	case "null_rate_exceeded", "duplicate_rate_exceeded", "type_mismatch":
		return SeverityWarn
	case "empty_dataset":
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// Findings flattens a report into (severity, message) pairs for display or
// alerting.
type Finding struct {
	Severity string `json:"severity"`
	Column   string `json:"column,omitempty"`
	Message  string `json:"message"`
}

func (r *Report) Findings() []Finding {
	var out []Finding
	if r.Completeness != nil {
		for _, col := range r.Completeness.MissingColumns {
			out = append(out, Finding{
				Severity: SeverityForFinding("missing_column"),
				Column:   col,
				Message:  "required column missing from dataset",
			})
		}
		for _, col := range r.Completeness.FailedColumns {
			out = append(out, Finding{
				Severity: SeverityForFinding("null_rate_exceeded"),
				Column:   col,
				Message:  "null rate over threshold",
			})
		}
	}
	if r.Duplicates != nil {
		for _, col := range r.Duplicates.MissingColumns {
			out = append(out, Finding{
				Severity: SeverityForFinding("missing_column"),
				Column:   col,
				Message:  "key column missing from dataset",
			})
		}
		if r.Duplicates.DuplicateRate > r.Duplicates.Threshold {
			out = append(out, Finding{
				Severity: SeverityForFinding("duplicate_rate_exceeded"),
				Message:  "duplicate rate over threshold",
			})
		}
	}
	if r.Types != nil {
		for col := range r.Types.Mismatches {
			out = append(out, Finding{
				Severity: SeverityForFinding("type_mismatch"),
				Column:   col,
				Message:  "values do not match expected type",
			})
		}
	}
	if r.TotalRecords == 0 {
		out = append(out, Finding{
			Severity: SeverityForFinding("empty_dataset"),
			Message:  "dataset has no records",
		})
	}
	return out
}
