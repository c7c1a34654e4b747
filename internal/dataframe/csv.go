package dataframe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// LoadOptions controls how a tabular file becomes a DataFrame.
type LoadOptions struct {
	// Delimiter for CSV. If 0, picks '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// ColumnTypes pins the type of named columns. Columns not listed are inferred.
	ColumnTypes map[string]ColType
	// MaxRows limits rows loaded; 0 means unlimited.
	MaxRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultLoadOptions returns reasonable defaults for loading datasets.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{MaxRows: 1000000}
}

// LoadCSV reads a delimited file into a DataFrame.
func LoadCSV(path string, opt LoadOptions) (*DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	return ReadCSV(f, filepath.Base(path), delim, opt)
}

// ReadCSV reads delimited records from r. The first record is the header.
func ReadCSV(r io.Reader, name string, delim rune, opt LoadOptions) (*DataFrame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(name, 0), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	maxRows := opt.MaxRows
	if maxRows <= 0 {
		maxRows = math.MaxInt
	}
	var records [][]string
	line := 1
	for len(records) < maxRows {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		line++
		cp := make([]string, len(rec))
		copy(cp, rec)
		records = append(records, cp)
	}
	return build(name, header, records, opt)
}

// build turns header + string records into typed columns. Short records are padded with
// missing cells; extra cells are ignored.
func build(name string, header []string, records [][]string, opt LoadOptions) (*DataFrame, error) {
	ncol := len(header)
	names := make([]string, ncol)
	seen := map[string]bool{}
	for i, h := range header {
		n := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if n == "" {
			n = fmt.Sprintf("column_%d", i+1)
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate column %q in header", n)
		}
		seen[n] = true
		names[i] = n
	}
	for col := range opt.ColumnTypes {
		if !seen[col] {
			return nil, fmt.Errorf("column %q not found in header", col)
		}
	}

	df := New(name, len(records))
	for j, col := range names {
		raw := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				raw[i] = strings.TrimSpace(rec[j])
			}
		}
		kind, pinned := opt.ColumnTypes[col]
		if !pinned {
			kind = inferKind(raw, opt)
		}
		var err error
		if kind == Numeric {
			err = df.AddNumericColumn(col, parseColumn(raw, opt))
		} else {
			err = df.AddCategoricalColumn(col, raw)
		}
		if err != nil {
			return nil, err
		}
	}
	return df, nil
}

// inferKind picks numeric when every non-empty cell parses as a number.
func inferKind(raw []string, opt LoadOptions) ColType {
	nonEmpty := 0
	for _, v := range raw {
		if v == "" {
			continue
		}
		nonEmpty++
		if _, ok := ParseNumeric(v, opt.DecimalSeparator, opt.ThousandsSeparator); !ok {
			return Categorical
		}
	}
	if nonEmpty == 0 {
		return Categorical
	}
	return Numeric
}

func parseColumn(raw []string, opt LoadOptions) []float64 {
	out := make([]float64, len(raw))
	for i, v := range raw {
		x, ok := ParseNumeric(v, opt.DecimalSeparator, opt.ThousandsSeparator)
		if !ok {
			x = math.NaN()
		}
		out[i] = x
	}
	return out
}

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}
