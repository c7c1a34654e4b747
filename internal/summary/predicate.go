package summary

import (
	"strconv"
	"strings"
)

// Predicate decides from a label value whether a row is an outlier.
type Predicate func(label float64) bool

// Equals matches label values equal to sentinel.
func Equals(sentinel float64) Predicate {
	return func(v float64) bool { return v == sentinel }
}

// GreaterThan matches label values strictly above threshold.
func GreaterThan(threshold float64) Predicate {
	return func(v float64) bool { return v > threshold }
}

// LessThan matches label values strictly below threshold.
func LessThan(threshold float64) Predicate {
	return func(v float64) bool { return v < threshold }
}

// ParsePredicate reads the textual predicate form used in config files and flags:
// "==1", "=1", "eq:1", "1" (equality), ">0.5", "gt:0.5", "<0", "lt:0", ">=1", "<=0".
func ParsePredicate(s string) (Predicate, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Equals(1.0), nil
	}
	type form struct {
		prefix string
		build  func(float64) Predicate
	}
	forms := []form{
		{"==", Equals},
		{">=", func(t float64) Predicate { return func(v float64) bool { return v >= t } }},
		{"<=", func(t float64) Predicate { return func(v float64) bool { return v <= t } }},
		{"eq:", Equals},
		{"gt:", GreaterThan},
		{"lt:", LessThan},
		{"=", Equals},
		{">", GreaterThan},
		{"<", LessThan},
	}
	lower := strings.ToLower(raw)
	for _, f := range forms {
		if strings.HasPrefix(lower, f.prefix) {
			x, err := strconv.ParseFloat(strings.TrimSpace(lower[len(f.prefix):]), 64)
			if err != nil {
				return nil, configErr("outlier_predicate", "invalid value in %q", s)
			}
			return f.build(x), nil
		}
	}
	x, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return nil, configErr("outlier_predicate", "unrecognized predicate %q (use ==v, >v, <v)", s)
	}
	return Equals(x), nil
}
