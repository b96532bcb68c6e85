package quality

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/jmorales/etlwatch/internal/dataset"
)

// CompletenessResult reports null counts per required column. Rates are
// fractions in [0,1] and use the same unit as the threshold.
type CompletenessResult struct {
	TotalRecords   int                `json:"total_records"`
	MissingColumns []string           `json:"missing_columns,omitempty"`
	NullCounts     map[string]int     `json:"null_counts"`
	NullRates      map[string]float64 `json:"null_rates"`
	EmptyRecords   int                `json:"empty_records"`
	Threshold      float64            `json:"threshold"`
	FailedColumns  []string           `json:"failed_columns,omitempty"`
	Passed         bool               `json:"passed"`
}

// DuplicatesResult reports records beyond the first occurrence of each
// equal-key group over the subset columns. A subset column absent from the
// dataset fails the check and is excluded from the grouping key.
type DuplicatesResult struct {
	TotalRecords   int      `json:"total_records"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	DuplicateCount int      `json:"duplicate_count"`
	DuplicateRate  float64  `json:"duplicate_rate"`
	UniqueRecords  int      `json:"unique_records"`
	Threshold      float64  `json:"threshold"`
	Passed         bool     `json:"passed"`
}

// TypesResult reports values that do not coerce to the expected kind per
// column. Kinds are "string", "number" and "bool".
type TypesResult struct {
	ColumnsChecked int            `json:"columns_checked"`
	Mismatches     map[string]int `json:"mismatches,omitempty"`
	Passed         bool           `json:"passed"`
}

// CheckCompleteness counts nulls per required column. On an empty dataset
// every rate is 0 by convention rather than an error. A column fails when
// its null rate exceeds nullThreshold; a required column missing from the
// dataset entirely also fails the check.
func CheckCompleteness(ds *dataset.Dataset, required []string, nullThreshold float64) CompletenessResult {
	res := CompletenessResult{
		TotalRecords: ds.Len(),
		NullCounts:   make(map[string]int, len(required)),
		NullRates:    make(map[string]float64, len(required)),
		Threshold:    nullThreshold,
		Passed:       true,
	}

	for _, col := range required {
		if !ds.HasColumn(col) {
			res.MissingColumns = append(res.MissingColumns, col)
			res.Passed = false
			continue
		}
		nulls := 0
		for i := range ds.Records {
			if ds.IsNull(i, col) {
				nulls++
			}
		}
		rate := 0.0
		if res.TotalRecords > 0 {
			rate = float64(nulls) / float64(res.TotalRecords)
		}
		res.NullCounts[col] = nulls
		res.NullRates[col] = rate
		if rate > nullThreshold {
			res.FailedColumns = append(res.FailedColumns, col)
			res.Passed = false
		}
	}

	for i := range ds.Records {
		empty := true
		for _, col := range ds.Columns {
			if !ds.IsNull(i, col) {
				empty = false
				break
			}
		}
		if empty && len(ds.Columns) > 0 {
			res.EmptyRecords++
		}
	}
	return res
}

// CheckDuplicates counts records whose subset-column values already appeared
// in an earlier record. Two nulls compare equal here; this is a deliberate
// counting convention, not SQL NULL semantics. An empty subset compares whole
// records over every declared column.
func CheckDuplicates(ds *dataset.Dataset, subset []string, dupThreshold float64) DuplicatesResult {
	res := DuplicatesResult{
		TotalRecords: ds.Len(),
		Threshold:    dupThreshold,
		Passed:       true,
	}

	if len(subset) == 0 {
		subset = ds.Columns
	}

	// Keying every record as null for a missing column would collapse the
	// key space and count everything as a duplicate. Surface the missing
	// column and group only over the columns that exist.
	var present []string
	for _, col := range subset {
		if ds.HasColumn(col) {
			present = append(present, col)
		} else {
			res.MissingColumns = append(res.MissingColumns, col)
		}
	}

	if len(present) > 0 {
		seen := make(map[string]bool, ds.Len())
		for i := range ds.Records {
			key := recordKey(ds, i, present)
			if seen[key] {
				res.DuplicateCount++
			} else {
				seen[key] = true
			}
		}
	}

	if res.TotalRecords > 0 {
		res.DuplicateRate = float64(res.DuplicateCount) / float64(res.TotalRecords)
	}
	res.UniqueRecords = res.TotalRecords - res.DuplicateCount
	res.Passed = res.DuplicateRate <= dupThreshold && len(res.MissingColumns) == 0
	return res
}

// CheckTypes verifies that non-null values coerce to the expected kind. Nulls
// are completeness territory and never count as type mismatches. Expected
// columns absent from the dataset are skipped; presence is the completeness
// check's job.
func CheckTypes(ds *dataset.Dataset, expected map[string]string) TypesResult {
	res := TypesResult{
		ColumnsChecked: len(expected),
		Passed:         true,
	}

	for col, kind := range expected {
		if !ds.HasColumn(col) {
			continue
		}
		mismatches := 0
		for i := range ds.Records {
			if ds.IsNull(i, col) {
				continue
			}
			if !coercible(ds.Records[i][col], kind) {
				mismatches++
			}
		}
		if mismatches > 0 {
			if res.Mismatches == nil {
				res.Mismatches = make(map[string]int)
			}
			res.Mismatches[col] = mismatches
			res.Passed = false
		}
	}
	return res
}

func coercible(v any, kind string) bool {
	switch kind {
	case "string":
		_, err := cast.ToStringE(v)
		return err == nil
	case "number":
		_, err := cast.ToFloat64E(v)
		return err == nil
	case "bool":
		_, err := cast.ToBoolE(v)
		return err == nil
	default:
		return false
	}
}

// recordKey builds a comparison key over the subset columns. Nulls get a
// dedicated marker so null == null while null != "". Values cast cannot
// stringify (nested objects from JSON sources) fall back to fmt so distinct
// values keep distinct keys.
func recordKey(ds *dataset.Dataset, i int, subset []string) string {
	var b strings.Builder
	for _, col := range subset {
		if ds.IsNull(i, col) {
			b.WriteByte(0x00)
		} else {
			b.WriteByte(0x01)
			s, err := cast.ToStringE(ds.Records[i][col])
			if err != nil {
				s = fmt.Sprintf("%v", ds.Records[i][col])
			}
			b.WriteString(s)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}
