// Package classify labels rows of a DataFrame as outliers or inliers from a numeric metric.
// Classifiers never mutate their input: they return a copy of the frame with an extra numeric
// label column holding 1.0 for outliers and 0.0 for inliers.
package classify

import (
	"fmt"
	"math"

	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

// DefaultOutputColumn is the label column appended by classifiers.
const DefaultOutputColumn = "_OUTLIER"

const (
	outlierLabel = 1.0
	inlierLabel  = 0.0
)

// Classifier appends an outlier label column to a frame.
type Classifier interface {
	Classify(df *dataframe.DataFrame) (*dataframe.DataFrame, error)
}

// PercentileClassifier flags the extreme tails of a metric. Percentile is expressed in percent
// and applies to each included tail: 1.0 with both tails flags roughly 2% of rows.
type PercentileClassifier struct {
	Column       string
	Percentile   float64
	IncludeHigh  bool
	IncludeLow   bool
	OutputColumn string
}

// NewPercentileClassifier flags the top 1% and the bottom 1% of column.
func NewPercentileClassifier(column string) *PercentileClassifier {
	return &PercentileClassifier{
		Column:       column,
		Percentile:   1.0,
		IncludeHigh:  true,
		IncludeLow:   true,
		OutputColumn: DefaultOutputColumn,
	}
}

// Cutoffs returns the low and high thresholds for the given metric values. A tail that is not
// included gets an infinite cutoff so that nothing crosses it.
func (c *PercentileClassifier) Cutoffs(vals []float64) (low, high float64, err error) {
	if c.Percentile <= 0 || c.Percentile >= 100 {
		return 0, 0, fmt.Errorf("percentile must be in (0, 100), got %v", c.Percentile)
	}
	if !c.IncludeHigh && !c.IncludeLow {
		return 0, 0, fmt.Errorf("percentile classifier needs at least one tail (high or low)")
	}
	sorted := sortedCopy(vals)
	low, high = math.Inf(-1), math.Inf(1)
	if c.IncludeLow {
		low = percentile(sorted, c.Percentile)
	}
	if c.IncludeHigh {
		high = percentile(sorted, 100-c.Percentile)
	}
	return low, high, nil
}

// Classify labels rows strictly below the low cutoff or strictly above the high cutoff.
// Rows with a missing metric are labeled inliers.
func (c *PercentileClassifier) Classify(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	metric, err := metricValues(df, c.Column)
	if err != nil {
		return nil, err
	}
	low, high, err := c.Cutoffs(present(metric))
	if err != nil {
		return nil, err
	}
	labels := make([]float64, len(metric))
	for i, x := range metric {
		labels[i] = inlierLabel
		if math.IsNaN(x) {
			continue
		}
		if x < low || x > high {
			labels[i] = outlierLabel
		}
	}
	return withLabels(df, c.OutputColumn, labels)
}

// MADClassifier flags rows whose robust Z-score (based on the median absolute deviation)
// exceeds Threshold in absolute value.
type MADClassifier struct {
	Column       string
	Threshold    float64
	OutputColumn string
}

// NewMADClassifier uses the conventional 3.5 cutoff.
func NewMADClassifier(column string) *MADClassifier {
	return &MADClassifier{Column: column, Threshold: 3.5, OutputColumn: DefaultOutputColumn}
}

// Classify labels rows with |z| > Threshold. A zero MAD flags nothing.
func (c *MADClassifier) Classify(df *dataframe.DataFrame) (*dataframe.DataFrame, error) {
	metric, err := metricValues(df, c.Column)
	if err != nil {
		return nil, err
	}
	thr := c.Threshold
	if thr <= 0 {
		thr = 3.5
	}
	median, mad := medianMAD(present(metric))
	labels := make([]float64, len(metric))
	for i, x := range metric {
		labels[i] = inlierLabel
		if math.IsNaN(x) || mad == 0 {
			continue
		}
		if z := 0.6745 * (x - median) / mad; math.Abs(z) > thr {
			labels[i] = outlierLabel
		}
	}
	return withLabels(df, c.OutputColumn, labels)
}

// CountOutliers returns how many rows of a labeled frame carry the outlier label.
func CountOutliers(df *dataframe.DataFrame, column string) int {
	n := 0
	for i := 0; i < df.NumRows(); i++ {
		if v, ok := df.Float(column, i); ok && v == outlierLabel {
			n++
		}
	}
	return n
}

func metricValues(df *dataframe.DataFrame, column string) ([]float64, error) {
	if df == nil {
		return nil, fmt.Errorf("classify: nil frame")
	}
	if column == "" {
		return nil, fmt.Errorf("classify: metric column is required")
	}
	vals, err := df.NumericColumn(column)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return vals, nil
}

func withLabels(df *dataframe.DataFrame, column string, labels []float64) (*dataframe.DataFrame, error) {
	if column == "" {
		column = DefaultOutputColumn
	}
	out := df.Clone()
	if err := out.AddNumericColumn(column, labels); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	return out, nil
}

func present(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
