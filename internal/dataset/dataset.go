package dataset

import (
	"fmt"

	"github.com/spf13/cast"
)

// Record maps a column name to its value. A missing value is stored as an
// explicit nil under the column key, never as an omitted key.
type Record map[string]any

// Dataset is the in-memory tabular result of one extraction. Column order is
// the order the source declared them in. Once built it is treated as
// read-only: quality checks and loaders never mutate it.
type Dataset struct {
	Columns []string
	Records []Record
}

func New(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols}
}

// Append normalizes rec against the declared column set and adds it. Absent
// keys become explicit nils; a key outside the column set is rejected so the
// invariant that all records share one column set holds.
func (d *Dataset) Append(rec Record) error {
	declared := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		declared[c] = true
	}
	for k := range rec {
		if !declared[k] {
			return fmt.Errorf("record has undeclared column %q", k)
		}
	}
	normalized := make(Record, len(d.Columns))
	for _, c := range d.Columns {
		v, ok := rec[c]
		if !ok {
			v = nil
		}
		normalized[c] = v
	}
	d.Records = append(d.Records, normalized)
	return nil
}

func (d *Dataset) Len() int {
	return len(d.Records)
}

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// IsNull reports whether the value at row i, column col is the null marker.
func (d *Dataset) IsNull(i int, col string) bool {
	return d.Records[i][col] == nil
}

// String returns the value at row i, column col coerced to a string. Nulls
// coerce to the empty string.
func (d *Dataset) String(i int, col string) (string, error) {
	v := d.Records[i][col]
	if v == nil {
		return "", nil
	}
	return cast.ToStringE(v)
}

// Float returns the value at row i, column col coerced to a float64. JSON
// sources deliver all numbers as float64 already; CSV delivers strings.
func (d *Dataset) Float(i int, col string) (float64, error) {
	v := d.Records[i][col]
	if v == nil {
		return 0, fmt.Errorf("column %q is null at row %d", col, i)
	}
	return cast.ToFloat64E(v)
}
