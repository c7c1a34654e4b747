package summary

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

func testEncoder(t *testing.T) *encoder {
	t.Helper()
	df := dataframe.New("t", 4)
	require.NoError(t, df.AddCategoricalColumn("a", []string{"a1", "a2", "a1", "a2"}))
	require.NoError(t, df.AddCategoricalColumn("b", []string{"b1", "b1", "b2", "b2"}))
	require.NoError(t, df.AddCategoricalColumn("c", []string{"c1", "c2", "c3", ""}))
	enc, err := newEncoder(df, []string{"a", "b", "c"})
	require.NoError(t, err)
	return enc
}

func TestEncoder_AttributeMajorIDs(t *testing.T) {
	enc := testEncoder(t)
	require.Equal(t, 7, enc.numItems())
	assert.Equal(t, []AttributeValue{
		{"a", "a1"}, {"a", "a2"}, {"b", "b1"}, {"b", "b2"}, {"c", "c1"}, {"c", "c2"}, {"c", "c3"},
	}, enc.items)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 2, 2}, enc.itemAttr)
	assert.Equal(t, noItem, enc.cells[2][3])
}

func TestLattice_NextGeneratesEachCandidateOnce(t *testing.T) {
	enc := testEncoder(t)
	lat := &lattice{enc: enc}

	pairs := lat.next(lat.first())
	// 2*2 (a,b) + 2*3 (a,c) + 2*3 (b,c)
	require.Len(t, pairs, 16)
	seen := map[string]bool{}
	for _, p := range pairs {
		require.Len(t, p, 2)
		assert.Less(t, p[0], p[1])
		assert.NotEqual(t, enc.itemAttr[p[0]], enc.itemAttr[p[1]])
		assert.False(t, seen[p.key()], "duplicate %v", p)
		seen[p.key()] = true
	}

	triples := lat.next(pairs)
	assert.Len(t, triples, 12)
}

func TestLattice_NextPrunesCandidatesWithDeadSubsets(t *testing.T) {
	lat := &lattice{enc: testEncoder(t)}
	// {a1,b1}, {a1,c1} survive but {b1,c1} does not, so {a1,b1,c1} must not be generated.
	survivors := []itemset{{0, 2}, {0, 4}}
	assert.Empty(t, lat.next(survivors))

	survivors = append(survivors, itemset{2, 4})
	assert.Equal(t, []itemset{{0, 2, 4}}, lat.next(survivors))
}

func TestLattice_SingletonSurvivorsOnly(t *testing.T) {
	lat := &lattice{enc: testEncoder(t)}
	// only a1 and b2 survive level one
	got := lat.next([]itemset{{0}, {3}})
	assert.Equal(t, []itemset{{0, 3}}, got)
	assert.Nil(t, lat.next(nil))
}

func TestBitset(t *testing.T) {
	only := func(i int) bitset {
		one := newBitset(130)
		one.set(i)
		return one
	}
	a, b := newBitset(130), newBitset(130)
	for _, i := range []int{0, 3, 64, 65, 129} {
		a.set(i)
	}
	for _, i := range []int{3, 65, 100, 129} {
		b.set(i)
	}
	assert.Equal(t, 5, a.count())
	assert.Equal(t, 1, andCount(a, only(64)))
	assert.Zero(t, andCount(a, only(100)))
	assert.Equal(t, 3, andCount(a, b))

	c := newBitset(130)
	c.intersect(a, b)
	assert.Equal(t, 3, c.count())
	assert.Equal(t, 1, andCount(c, only(129)))
}

func TestCounter_CountLevel(t *testing.T) {
	enc := testEncoder(t)
	c := newCounter(enc, []bool{true, false, true, false})
	assert.Equal(t, 2, c.numOutliers)
	assert.Equal(t, 2, c.numInliers)

	level := []itemset{{0}, {1}, {0, 2}, {0, 3}, {3, 6}}
	for _, workers := range []int{1, 2, 8} {
		got, err := c.countLevel(context.Background(), level, workers)
		require.NoError(t, err)
		assert.Equal(t, []counts{{2, 0}, {0, 2}, {1, 0}, {1, 0}, {1, 0}}, got, "workers=%d", workers)
	}
}

func TestComputeStats(t *testing.T) {
	st := computeStats(counts{outliers: 6, inliers: 80}, 12, 1008)
	assert.InDelta(t, 0.5, st.Support, 1e-12)
	assert.InDelta(t, 6.3, st.RiskRatio, 1e-12)

	st = computeStats(counts{outliers: 3}, 12, 1008)
	assert.True(t, math.IsInf(st.RiskRatio, 1))

	st = computeStats(counts{inliers: 5}, 12, 1008)
	assert.Zero(t, st.Support)
	assert.Zero(t, st.RiskRatio)
}

func TestOptions_Accepts(t *testing.T) {
	o := Options{MinSupport: 0.1, MinRiskRatio: 3}
	assert.True(t, o.accepts(ItemsetStats{OutlierCount: 1, Support: 0.1, RiskRatio: 3}))
	assert.True(t, o.accepts(ItemsetStats{OutlierCount: 1, Support: 0.5, RiskRatio: math.Inf(1)}))
	assert.False(t, o.accepts(ItemsetStats{OutlierCount: 1, Support: 0.05, RiskRatio: math.Inf(1)}))
	assert.False(t, o.accepts(ItemsetStats{OutlierCount: 1, Support: 0.5, RiskRatio: 2.9}))
	assert.True(t, o.expandable(ItemsetStats{OutlierCount: 1, Support: 0.5, RiskRatio: 2.9}))
	assert.False(t, o.expandable(ItemsetStats{}))
}

func TestRank_TieBreaks(t *testing.T) {
	res := []ItemsetResult{
		{ids: itemset{4}, stats: ItemsetStats{Support: 0.5, RiskRatio: 2}},
		{ids: itemset{1, 4}, stats: ItemsetStats{Support: 0.5, RiskRatio: 2}},
		{ids: itemset{2}, stats: ItemsetStats{Support: 0.5, RiskRatio: 2}},
		{ids: itemset{7}, stats: ItemsetStats{Support: 0.9, RiskRatio: 2}},
		{ids: itemset{9}, stats: ItemsetStats{Support: 0.1, RiskRatio: math.Inf(1)}},
	}
	rank(res)
	var order []itemset
	for _, r := range res {
		order = append(order, r.ids)
	}
	assert.Equal(t, []itemset{{9}, {7}, {2}, {4}, {1, 4}}, order)
}

func TestParsePredicate(t *testing.T) {
	cases := []struct {
		in   string
		v    float64
		want bool
	}{
		{"", 1, true},
		{"==1", 1, true},
		{"=1", 0, false},
		{"eq:0", 0, true},
		{"0", 0, true},
		{">0.5", 0.6, true},
		{"gt:0.5", 0.5, false},
		{"<0", -1, true},
		{"lt:0", 0, false},
		{">=1", 1, true},
		{"<=1", 1.5, false},
		{"  == 2 ", 2, true},
	}
	for _, tc := range cases {
		p, err := ParsePredicate(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, p(tc.v), "%q(%v)", tc.in, tc.v)
	}

	for _, bad := range []string{"abc", "==x", ">"} {
		_, err := ParsePredicate(bad)
		assert.ErrorIs(t, err, ErrConfiguration, bad)
	}
}
