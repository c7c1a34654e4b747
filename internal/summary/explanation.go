package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ItemsetResult is one accepted explanation. It is a value type with unexported fields;
// accessors return copies.
type ItemsetResult struct {
	items []AttributeValue
	ids   itemset
	stats ItemsetStats
}

// Items returns the attribute-value conditions of the itemset.
func (r ItemsetResult) Items() []AttributeValue {
	out := make([]AttributeValue, len(r.items))
	copy(out, r.items)
	return out
}

func (r ItemsetResult) Size() int { return len(r.items) }
func (r ItemsetResult) Support() float64 { return r.stats.Support }
func (r ItemsetResult) RiskRatio() float64 { return r.stats.RiskRatio }
func (r ItemsetResult) OutlierCount() int { return r.stats.OutlierCount }
func (r ItemsetResult) InlierCount() int { return r.stats.InlierCount }
func (r ItemsetResult) Stats() ItemsetStats { return r.stats }

// String renders the itemset as "a=x AND b=y".
func (r ItemsetResult) String() string {
	parts := make([]string, len(r.items))
	for i, it := range r.items {
		parts[i] = it.String()
	}
	return strings.Join(parts, " AND ")
}

// Explanation is the result of one mining run.
type Explanation struct {
	numOutliers int
	numInliers  int
	results     []ItemsetResult
	attributes  []string
	opts        Options
}

func (e *Explanation) NumOutliers() int { return e.numOutliers }
func (e *Explanation) NumInliers() int { return e.numInliers }
func (e *Explanation) NumRows() int { return e.numOutliers + e.numInliers }

// Len returns the number of accepted itemsets.
func (e *Explanation) Len() int { return len(e.results) }

// At returns the i-th accepted itemset in rank order.
func (e *Explanation) At(i int) ItemsetResult { return e.results[i] }

// Itemsets returns the accepted itemsets in rank order.
func (e *Explanation) Itemsets() []ItemsetResult {
	out := make([]ItemsetResult, len(e.results))
	copy(out, e.results)
	return out
}

// Attributes returns the explanation attributes the run mined over.
func (e *Explanation) Attributes() []string {
	return append([]string(nil), e.attributes...)
}

// Snapshot converts the explanation into a plain serializable record.
func (e *Explanation) Snapshot(source string) Snapshot {
	s := Snapshot{
		Source:                   source,
		NumRows:                  e.NumRows(),
		NumOutliers:              e.numOutliers,
		NumInliers:               e.numInliers,
		Attributes:               e.Attributes(),
		MinSupport:               e.opts.MinSupport,
		MinRiskRatio:             e.opts.MinRiskRatio,
		UseAttributeCombinations: e.opts.UseAttributeCombinations,
		Itemsets:                 make([]ItemsetRecord, len(e.results)),
	}
	for i, r := range e.results {
		s.Itemsets[i] = ItemsetRecord{
			Items:        r.Items(),
			Support:      r.stats.Support,
			RiskRatio:    Ratio(r.stats.RiskRatio),
			OutlierCount: r.stats.OutlierCount,
			InlierCount:  r.stats.InlierCount,
		}
	}
	return s
}

// Snapshot is the serializable form of an Explanation, used for output files and saved runs.
type Snapshot struct {
	Source                   string          `json:"source,omitempty" yaml:"source,omitempty"`
	NumRows                  int             `json:"num_rows" yaml:"num_rows"`
	NumOutliers              int             `json:"num_outliers" yaml:"num_outliers"`
	NumInliers               int             `json:"num_inliers" yaml:"num_inliers"`
	Attributes               []string        `json:"attributes" yaml:"attributes"`
	MinSupport               float64         `json:"min_support" yaml:"min_support"`
	MinRiskRatio             float64         `json:"min_risk_ratio" yaml:"min_risk_ratio"`
	UseAttributeCombinations bool            `json:"use_attribute_combinations" yaml:"use_attribute_combinations"`
	Itemsets                 []ItemsetRecord `json:"itemsets" yaml:"itemsets"`
	Timings                  []Timing        `json:"timings,omitempty" yaml:"timings,omitempty"`
}

type ItemsetRecord struct {
	Items        []AttributeValue `json:"items" yaml:"items"`
	Support      float64          `json:"support" yaml:"support"`
	RiskRatio    Ratio            `json:"risk_ratio" yaml:"risk_ratio"`
	OutlierCount int              `json:"outlier_count" yaml:"outlier_count"`
	InlierCount  int              `json:"inlier_count" yaml:"inlier_count"`
}

// Label renders the itemset conditions as "a=x AND b=y".
func (r ItemsetRecord) Label() string {
	parts := make([]string, len(r.Items))
	for i, it := range r.Items {
		parts[i] = it.String()
	}
	return strings.Join(parts, " AND ")
}

// Timing records how long one stage of a run took.
type Timing struct {
	Stage    string        `json:"stage" yaml:"stage"`
	Duration time.Duration `json:"duration_ns" yaml:"duration"`
}

// Ratio is a risk ratio that survives JSON round trips when infinite.
type Ratio float64

func (r Ratio) IsInf() bool { return math.IsInf(float64(r), 1) }

func (r Ratio) String() string {
	if r.IsInf() {
		return "inf"
	}
	return fmt.Sprintf("%.2f", float64(r))
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return []byte(`"inf"`), nil
	}
	return json.Marshal(float64(r))
}

func (r *Ratio) UnmarshalJSON(b []byte) error {
	if string(b) == `"inf"` {
		*r = Ratio(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("risk ratio: %w", err)
	}
	*r = Ratio(f)
	return nil
}
