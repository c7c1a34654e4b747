package summary

import (
	"math"

	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

// Table is the read-only view of a labeled dataset that the summarizer mines.
// *dataframe.DataFrame satisfies it.
type Table interface {
	NumRows() int
	ColumnType(name string) (dataframe.ColType, bool)
	Float(col string, row int) (float64, bool)
	String(col string, row int) (string, bool)
}

// Options controls mining behavior.
type Options struct {
	// Attributes are the categorical columns explanations are built from, in order.
	Attributes []string
	// MinSupport is the minimum fraction of outliers an itemset must cover, in [0, 1].
	MinSupport float64
	// MinRiskRatio is the minimum ratio of outlier prevalence to inlier prevalence.
	MinRiskRatio float64
	// UseAttributeCombinations enables itemsets of more than one attribute.
	UseAttributeCombinations bool
	// OutlierColumn is the numeric label column the predicate is applied to.
	OutlierColumn string
	// Predicate decides from a label value whether a row is an outlier.
	// Nil means label == 1.0.
	Predicate Predicate
	// Workers caps parallel counting goroutines; 0 uses GOMAXPROCS.
	Workers int
	// MaxOrder caps itemset size; 0 means the number of attributes.
	MaxOrder int
}

// DefaultOptions returns the thresholds used when callers only pick attributes.
func DefaultOptions() Options {
	return Options{
		MinSupport:               0.01,
		MinRiskRatio:             3.0,
		UseAttributeCombinations: true,
		OutlierColumn:            "_OUTLIER",
		Predicate:                Equals(1.0),
	}
}

// Validate checks option ranges. Attribute names are checked against the table later.
func (o Options) Validate() error {
	if len(o.Attributes) == 0 {
		return configErr("attributes", "at least one explanation attribute is required")
	}
	if math.IsNaN(o.MinSupport) || o.MinSupport < 0 || o.MinSupport > 1 {
		return configErr("min_support", "must be within [0, 1], got %v", o.MinSupport)
	}
	if math.IsNaN(o.MinRiskRatio) || o.MinRiskRatio < 0 {
		return configErr("min_risk_ratio", "must be >= 0, got %v", o.MinRiskRatio)
	}
	if o.OutlierColumn == "" {
		return configErr("outlier_column", "label column name is required")
	}
	if o.Workers < 0 {
		return configErr("workers", "must be >= 0, got %d", o.Workers)
	}
	if o.MaxOrder < 0 {
		return configErr("max_order", "must be >= 0, got %d", o.MaxOrder)
	}
	return nil
}

func (o Options) predicate() Predicate {
	if o.Predicate == nil {
		return Equals(1.0)
	}
	return o.Predicate
}
