package dataframe

import (
	"fmt"
	"math"
	"sort"
)

// ColType is the declared type of a column.
type ColType int

const (
	Numeric ColType = iota
	Categorical
)

func (t ColType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ParseColType accepts the names used in config files and CLI flags.
func ParseColType(s string) (ColType, error) {
	switch s {
	case "numeric", "number", "double", "float":
		return Numeric, nil
	case "categorical", "string", "category", "text":
		return Categorical, nil
	default:
		return 0, fmt.Errorf("unknown column type %q (use numeric or categorical)", s)
	}
}

// DataFrame is an immutable-by-convention columnar table. Numeric cells that are missing hold
// NaN; categorical cells that are missing hold the empty string.
type DataFrame struct {
	name    string
	rows    int
	order   []string
	types   map[string]ColType
	numeric map[string][]float64
	strs    map[string][]string
}

// New returns an empty frame with the given number of rows.
func New(name string, rows int) *DataFrame {
	return &DataFrame{
		name:    name,
		rows:    rows,
		types:   map[string]ColType{},
		numeric: map[string][]float64{},
		strs:    map[string][]string{},
	}
}

// Name returns the source name (usually the file base name).
func (df *DataFrame) Name() string { return df.name }

// NumRows returns the number of rows.
func (df *DataFrame) NumRows() int { return df.rows }

// Columns returns column names in insertion order.
func (df *DataFrame) Columns() []string {
	out := make([]string, len(df.order))
	copy(out, df.order)
	return out
}

// ColumnType reports the declared type of a column.
func (df *DataFrame) ColumnType(name string) (ColType, bool) {
	t, ok := df.types[name]
	return t, ok
}

// AddNumericColumn appends a numeric column. vals must have NumRows entries.
func (df *DataFrame) AddNumericColumn(name string, vals []float64) error {
	if err := df.checkNew(name, len(vals)); err != nil {
		return err
	}
	df.order = append(df.order, name)
	df.types[name] = Numeric
	df.numeric[name] = vals
	return nil
}

// AddCategoricalColumn appends a categorical column. vals must have NumRows entries.
func (df *DataFrame) AddCategoricalColumn(name string, vals []string) error {
	if err := df.checkNew(name, len(vals)); err != nil {
		return err
	}
	df.order = append(df.order, name)
	df.types[name] = Categorical
	df.strs[name] = vals
	return nil
}

func (df *DataFrame) checkNew(name string, n int) error {
	if name == "" {
		return fmt.Errorf("column name is empty")
	}
	if _, ok := df.types[name]; ok {
		return fmt.Errorf("column %q already exists", name)
	}
	if n != df.rows {
		return fmt.Errorf("column %q has %d values, frame has %d rows", name, n, df.rows)
	}
	return nil
}

// Float returns the numeric value at row. ok is false for missing cells, unknown columns and
// non-numeric columns.
func (df *DataFrame) Float(col string, row int) (float64, bool) {
	vals, ok := df.numeric[col]
	if !ok || row < 0 || row >= len(vals) {
		return 0, false
	}
	v := vals[row]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// String returns the categorical value at row. ok is false for missing cells, unknown columns
// and non-categorical columns.
func (df *DataFrame) String(col string, row int) (string, bool) {
	vals, ok := df.strs[col]
	if !ok || row < 0 || row >= len(vals) {
		return "", false
	}
	v := vals[row]
	if v == "" {
		return "", false
	}
	return v, true
}

// NumericColumn returns a copy of a numeric column.
func (df *DataFrame) NumericColumn(name string) ([]float64, error) {
	vals, ok := df.numeric[name]
	if !ok {
		if _, exists := df.types[name]; exists {
			return nil, fmt.Errorf("column %q is not numeric", name)
		}
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, nil
}

// Clone returns a shallow copy whose column set can be extended without affecting df.
// Column slices are shared; callers never mutate them.
func (df *DataFrame) Clone() *DataFrame {
	c := New(df.name, df.rows)
	c.order = append(c.order, df.order...)
	for k, v := range df.types {
		c.types[k] = v
	}
	for k, v := range df.numeric {
		c.numeric[k] = v
	}
	for k, v := range df.strs {
		c.strs[k] = v
	}
	return c
}

// Distinct returns the distinct non-missing values of a categorical column with their counts,
// most frequent first.
func (df *DataFrame) Distinct(name string) []ValueCount {
	vals := df.strs[name]
	counts := map[string]int{}
	for _, v := range vals {
		if v == "" {
			continue
		}
		counts[v]++
	}
	out := make([]ValueCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, ValueCount{Value: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	return out
}

type ValueCount struct {
	Value string
	Count int
}
