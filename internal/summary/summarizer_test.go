package summary_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/explain-cli/internal/classify"
	"github.com/KaramelBytes/explain-cli/internal/dataframe"
	"github.com/KaramelBytes/explain-cli/internal/summary"
)

func usageOptions() summary.Options {
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"location", "version"}
	return opts
}

func summarize(t *testing.T, opts summary.Options, tbl summary.Table) *summary.Explanation {
	t.Helper()
	exp, err := summary.New(opts, nil).Summarize(context.Background(), tbl)
	require.NoError(t, err)
	return exp
}

func labels(exp *summary.Explanation) []string {
	out := make([]string, exp.Len())
	for i := 0; i < exp.Len(); i++ {
		out[i] = exp.At(i).String()
	}
	return out
}

func TestSummarize_DefaultThresholds(t *testing.T) {
	exp := summarize(t, usageOptions(), labeledUsage(t))

	assert.Equal(t, 20, exp.NumOutliers())
	assert.Equal(t, 1000, exp.NumInliers())
	require.Equal(t, []string{
		"location=CAN AND version=v3",
		"location=CAN",
		"version=v3",
	}, labels(exp))

	pair := exp.At(0)
	assert.Equal(t, 2, pair.Size())
	assert.Equal(t, 10, pair.OutlierCount())
	assert.Equal(t, 76, pair.InlierCount())
	assert.InDelta(t, 0.5, pair.Support(), 1e-9)
	assert.InDelta(t, 500.0/76, pair.RiskRatio(), 1e-9)

	for _, r := range exp.Itemsets()[1:] {
		assert.Equal(t, 1, r.Size())
		assert.Equal(t, 11, r.OutlierCount())
		assert.Equal(t, 156, r.InlierCount())
		assert.InDelta(t, 0.55, r.Support(), 1e-9)
		assert.InDelta(t, 550.0/156, r.RiskRatio(), 1e-9)
	}
}

func TestSummarize_HigherRiskRatio(t *testing.T) {
	opts := usageOptions()
	opts.MinRiskRatio = 5
	exp := summarize(t, opts, labeledUsage(t))
	assert.Equal(t, []string{"location=CAN AND version=v3"}, labels(exp))
}

func TestSummarize_HigherSupport(t *testing.T) {
	opts := usageOptions()
	opts.MinSupport = 0.55
	exp := summarize(t, opts, labeledUsage(t))
	assert.Equal(t, []string{"location=CAN", "version=v3"}, labels(exp))
}

func TestSummarize_NoCombinations(t *testing.T) {
	opts := usageOptions()
	opts.UseAttributeCombinations = false
	exp := summarize(t, opts, labeledUsage(t))
	assert.Equal(t, []string{"location=CAN", "version=v3"}, labels(exp))
	for _, r := range exp.Itemsets() {
		assert.Equal(t, 1, r.Size())
	}
}

func TestSummarize_InvertedPredicate(t *testing.T) {
	opts := usageOptions()
	pred, err := summary.ParsePredicate("==0")
	require.NoError(t, err)
	opts.Predicate = pred
	df := labeledUsage(t)
	exp := summarize(t, opts, df)

	assert.Equal(t, 1000, exp.NumOutliers())
	assert.Equal(t, 20, exp.NumInliers())
	assert.Equal(t, df.NumRows(), exp.NumRows())
	assert.Zero(t, exp.Len())
}

func TestSummarize_LowTailOnly(t *testing.T) {
	c := classify.NewPercentileClassifier("usage")
	c.Percentile = 2
	c.IncludeHigh = false
	df, err := c.Classify(usageFrame(t))
	require.NoError(t, err)

	opts := usageOptions()
	opts.UseAttributeCombinations = false
	exp := summarize(t, opts, df)

	assert.Equal(t, 20, exp.NumOutliers())
	require.Equal(t, []string{"location=CAN", "version=v3"}, labels(exp))
	assert.Greater(t, exp.At(0).Support(), 0.9)
	assert.Equal(t, 20, exp.At(0).OutlierCount())
}

func TestSummarize_InfiniteRiskRatio(t *testing.T) {
	df := labeledFrame(t, []float64{1, 1, 0, 0}, map[string][]string{"a": {"x", "x", "y", "y"}})
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a"}
	exp := summarize(t, opts, df)

	require.Equal(t, 1, exp.Len())
	r := exp.At(0)
	assert.Equal(t, "a=x", r.String())
	assert.True(t, math.IsInf(r.RiskRatio(), 1))
	assert.Equal(t, 1.0, r.Support())

	snap := exp.Snapshot("rows")
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"risk_ratio":"inf"`)
	var back summary.Snapshot
	require.NoError(t, json.Unmarshal(b, &back))
	require.Len(t, back.Itemsets, 1)
	assert.True(t, back.Itemsets[0].RiskRatio.IsInf())
}

func TestSummarize_NoOutliers(t *testing.T) {
	df := labeledFrame(t, []float64{0, 0, 0}, map[string][]string{"a": {"x", "y", "x"}})
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a"}
	exp := summarize(t, opts, df)
	assert.Zero(t, exp.NumOutliers())
	assert.Equal(t, 3, exp.NumInliers())
	assert.Zero(t, exp.Len())
}

func TestSummarize_MissingAttributeValuesMatchNothing(t *testing.T) {
	df := labeledFrame(t, []float64{1, 1, 1, 0}, map[string][]string{"a": {"x", "", "", "y"}})
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a"}
	opts.MinRiskRatio = 0
	exp := summarize(t, opts, df)
	require.Equal(t, []string{"a=x"}, labels(exp))
	assert.InDelta(t, 1.0/3, exp.At(0).Support(), 1e-9)
}

func TestSummarize_MaxOrder(t *testing.T) {
	df := randomFrame(t, 400, 3)
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a", "b", "c"}
	opts.MinRiskRatio = 0
	opts.MaxOrder = 1
	exp := summarize(t, opts, df)
	require.NotZero(t, exp.Len())
	for _, r := range exp.Itemsets() {
		assert.Equal(t, 1, r.Size())
	}
}

func TestSummarize_Invariants(t *testing.T) {
	df := randomFrame(t, 2000, 4)
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a", "b", "c", "d"}
	opts.MinSupport = 0.02
	opts.MinRiskRatio = 1.2
	exp := summarize(t, opts, df)
	require.NotZero(t, exp.Len())
	assert.Equal(t, df.NumRows(), exp.NumOutliers()+exp.NumInliers())

	for _, r := range exp.Itemsets() {
		assert.GreaterOrEqual(t, r.Support(), opts.MinSupport)
		assert.LessOrEqual(t, r.Support(), 1.0)
		assert.GreaterOrEqual(t, r.RiskRatio(), opts.MinRiskRatio)
		assert.LessOrEqual(t, r.OutlierCount(), exp.NumOutliers())
		assert.LessOrEqual(t, r.InlierCount(), exp.NumInliers())

		seen := map[string]bool{}
		for _, it := range r.Items() {
			assert.False(t, seen[it.Attribute], "attribute %s repeated in %s", it.Attribute, r)
			seen[it.Attribute] = true
		}
	}

	// ranking is non-increasing in risk ratio, then support
	all := exp.Itemsets()
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		require.GreaterOrEqual(t, prev.RiskRatio(), cur.RiskRatio())
		if prev.RiskRatio() == cur.RiskRatio() {
			require.GreaterOrEqual(t, prev.Support(), cur.Support())
		}
	}

	// every reported itemset matches an exhaustive count
	want := bruteForce(df, opts)
	require.Len(t, all, len(want))
	for _, r := range all {
		w, ok := want[r.String()]
		require.True(t, ok, "unexpected itemset %s", r)
		assert.Equal(t, w[0], r.OutlierCount(), r.String())
		assert.Equal(t, w[1], r.InlierCount(), r.String())
	}
}

func TestSummarize_SupportIsAntiMonotone(t *testing.T) {
	df := randomFrame(t, 1500, 3)
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a", "b", "c"}
	opts.MinSupport = 0
	opts.MinRiskRatio = 0
	exp := summarize(t, opts, df)

	support := map[string]float64{}
	for _, r := range exp.Itemsets() {
		support[r.String()] = r.Support()
	}
	checked := 0
	for _, r := range exp.Itemsets() {
		items := r.Items()
		if len(items) < 2 {
			continue
		}
		for skip := range items {
			var parts []string
			for i, it := range items {
				if i != skip {
					parts = append(parts, it.String())
				}
			}
			sub, ok := support[strings.Join(parts, " AND ")]
			require.True(t, ok, "subset of %s missing", r)
			assert.GreaterOrEqual(t, sub, r.Support())
			checked++
		}
	}
	assert.NotZero(t, checked)
}

func TestSummarize_Deterministic(t *testing.T) {
	df := randomFrame(t, 3000, 4)
	opts := summary.DefaultOptions()
	opts.Attributes = []string{"a", "b", "c", "d"}
	opts.MinRiskRatio = 1

	opts.Workers = 1
	serial := summarize(t, opts, df).Snapshot("x")
	opts.Workers = 8
	parallel := summarize(t, opts, df).Snapshot("x")
	again := summarize(t, opts, df).Snapshot("x")

	assert.Equal(t, serial, parallel)
	assert.Equal(t, parallel, again)
}

func TestSummarize_DoesNotModifyInput(t *testing.T) {
	df := labeledUsage(t)
	before := df.Columns()
	summarize(t, usageOptions(), df)
	assert.Equal(t, before, df.Columns())
}

func TestSummarize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := summary.New(usageOptions(), nil).Summarize(ctx, labeledUsage(t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_ConfigurationErrors(t *testing.T) {
	df := labeledUsage(t)
	cases := map[string]func(*summary.Options){
		"no attributes":        func(o *summary.Options) { o.Attributes = nil },
		"unknown attribute":    func(o *summary.Options) { o.Attributes = []string{"planet"} },
		"numeric attribute":    func(o *summary.Options) { o.Attributes = []string{"latency"} },
		"duplicate attribute":  func(o *summary.Options) { o.Attributes = []string{"location", "location"} },
		"support above one":    func(o *summary.Options) { o.MinSupport = 1.5 },
		"negative support":     func(o *summary.Options) { o.MinSupport = -0.1 },
		"negative risk ratio":  func(o *summary.Options) { o.MinRiskRatio = -1 },
		"missing label column": func(o *summary.Options) { o.OutlierColumn = "nope" },
		"empty label column":   func(o *summary.Options) { o.OutlierColumn = "" },
		"negative workers":     func(o *summary.Options) { o.Workers = -2 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := usageOptions()
			mutate(&opts)
			_, err := summary.New(opts, nil).Summarize(context.Background(), df)
			require.Error(t, err)
			assert.True(t, errors.Is(err, summary.ErrConfiguration), "got %v", err)
			var ce *summary.ConfigurationError
			assert.True(t, errors.As(err, &ce))
		})
	}

	_, err := summary.New(usageOptions(), nil).Summarize(context.Background(), nil)
	assert.ErrorIs(t, err, summary.ErrConfiguration)
}

func TestSummarize_LabelErrors(t *testing.T) {
	t.Run("categorical label column", func(t *testing.T) {
		opts := usageOptions()
		opts.OutlierColumn = "version"
		_, err := summary.New(opts, nil).Summarize(context.Background(), labeledUsage(t))
		require.ErrorIs(t, err, summary.ErrLabelEvaluation)
	})
	t.Run("missing label value", func(t *testing.T) {
		df := labeledFrame(t, []float64{1, math.NaN(), 0}, map[string][]string{"a": {"x", "y", "z"}})
		opts := summary.DefaultOptions()
		opts.Attributes = []string{"a"}
		_, err := summary.New(opts, nil).Summarize(context.Background(), df)
		require.ErrorIs(t, err, summary.ErrLabelEvaluation)
		var le *summary.LabelEvaluationError
		require.True(t, errors.As(err, &le))
		assert.Equal(t, 1, le.Row)
		assert.False(t, errors.Is(err, summary.ErrConfiguration))
	})
}

func TestExplanation_Render(t *testing.T) {
	snap := summarize(t, usageOptions(), labeledUsage(t)).Snapshot("usage.csv")
	snap.Timings = []summary.Timing{{Stage: "Summarization", Duration: 1500}}

	md := snap.Markdown()
	assert.Contains(t, md, "[EXPLANATION SUMMARY]")
	assert.Contains(t, md, "File: usage.csv")
	assert.Contains(t, md, "1. location=CAN AND version=v3: support 50.0%")
	assert.Contains(t, md, "risk ratio 6.58")
	assert.Contains(t, md, "[TIMINGS]")

	tbl := snap.Table()
	assert.Contains(t, tbl, "location=CAN AND version=v3")
	assert.Contains(t, tbl, "6.58")
}

// randomFrame builds a reproducible table whose outlier rate depends on attribute a, so that
// some itemsets clear a risk-ratio threshold.
func randomFrame(t *testing.T, rows, attrs int) *dataframe.DataFrame {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 11))
	names := []string{"a", "b", "c", "d"}[:attrs]
	cols := map[string][]string{}
	values := []string{"p", "q", "r", "s"}
	for _, n := range names {
		cols[n] = make([]string, rows)
	}
	lbl := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j, n := range names {
			cols[n][i] = values[rng.IntN(2+j%3)]
		}
		rate := 0.05
		if cols["a"][i] == "p" {
			rate = 0.3
		}
		if rng.Float64() < rate {
			lbl[i] = 1
		}
	}
	return labeledFrame(t, lbl, cols)
}

// bruteForce enumerates every itemset of every row and applies the thresholds directly.
// Values are [outliers, inliers].
func bruteForce(df *dataframe.DataFrame, opts summary.Options) map[string][2]int {
	raw := map[string][2]int{}
	var numOut, numIn int
	n := len(opts.Attributes)
	for row := 0; row < df.NumRows(); row++ {
		l, _ := df.Float(opts.OutlierColumn, row)
		out := l == 1
		if out {
			numOut++
		} else {
			numIn++
		}
		for mask := 1; mask < 1<<n; mask++ {
			var parts []string
			for i, a := range opts.Attributes {
				if mask&(1<<i) == 0 {
					continue
				}
				v, _ := df.String(a, row)
				parts = append(parts, a+"="+v)
			}
			sort.Strings(parts)
			k := strings.Join(parts, " AND ")
			c := raw[k]
			if out {
				c[0]++
			} else {
				c[1]++
			}
			raw[k] = c
		}
	}
	want := map[string][2]int{}
	for k, c := range raw {
		if c[0] == 0 {
			continue
		}
		sup := float64(c[0]) / float64(numOut)
		rr := math.Inf(1)
		if c[1] > 0 {
			rr = sup / (float64(c[1]) / float64(numIn))
		}
		if sup >= opts.MinSupport && rr >= opts.MinRiskRatio {
			want[k] = c
		}
	}
	return want
}
