package summary_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/explain-cli/internal/classify"
	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

// usageFrame builds a 1020-row table of device usage. The 20 lowest usage values all come from
// CAN/v3 devices and the 10 highest from a mix of locations, so the default 1% per tail cut
// flags 20 outliers of which 10 are CAN/v3.
func usageFrame(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	var usage, latency []float64
	var location, version []string
	add := func(u float64, loc, ver string) {
		usage = append(usage, u)
		latency = append(latency, float64(len(usage)%37)+10)
		location = append(location, loc)
		version = append(version, ver)
	}
	for u := 1; u <= 20; u++ {
		add(float64(u), "CAN", "v3")
	}
	next := 100.0
	for _, g := range []struct {
		loc, ver string
		n        int
	}{
		{"CAN", "v3", 66},
		{"CAN", "v1", 80},
		{"USA", "v3", 80},
		{"MEX", "v2", 764},
	} {
		for i := 0; i < g.n; i++ {
			add(next, g.loc, g.ver)
			next++
		}
	}
	top := 10000.0
	high := [][2]string{{"CAN", "v1"}, {"USA", "v3"}}
	for i := 0; i < 8; i++ {
		high = append(high, [2]string{"MEX", "v2"})
	}
	for _, lv := range high {
		add(top, lv[0], lv[1])
		top++
	}

	df := dataframe.New("usage.csv", len(usage))
	require.NoError(t, df.AddNumericColumn("usage", usage))
	require.NoError(t, df.AddNumericColumn("latency", latency))
	require.NoError(t, df.AddCategoricalColumn("location", location))
	require.NoError(t, df.AddCategoricalColumn("version", version))
	return df
}

// labeledUsage runs the default two-tailed percentile classifier over usageFrame.
func labeledUsage(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	df, err := classify.NewPercentileClassifier("usage").Classify(usageFrame(t))
	require.NoError(t, err)
	return df
}

// labeledFrame builds a small table from explicit rows; label 1 marks an outlier.
func labeledFrame(t *testing.T, labels []float64, cols map[string][]string) *dataframe.DataFrame {
	t.Helper()
	df := dataframe.New("rows", len(labels))
	require.NoError(t, df.AddNumericColumn("_OUTLIER", labels))
	for _, name := range []string{"a", "b", "c", "d"} {
		if vals, ok := cols[name]; ok {
			require.NoError(t, df.AddCategoricalColumn(name, vals))
		}
	}
	return df
}
