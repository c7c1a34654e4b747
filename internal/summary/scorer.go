package summary

import (
	"math"
	"sort"
)

// ItemsetStats are the counts and scores of one itemset.
type ItemsetStats struct {
	OutlierCount int
	InlierCount  int
	// Support is the fraction of all outliers matching the itemset.
	Support float64
	// RiskRatio is Support divided by the fraction of inliers matching the itemset;
	// +Inf when no inlier matches.
	RiskRatio float64
}

func computeStats(c counts, numOutliers, numInliers int) ItemsetStats {
	st := ItemsetStats{OutlierCount: c.outliers, InlierCount: c.inliers}
	if numOutliers == 0 || c.outliers == 0 {
		return st
	}
	st.Support = float64(c.outliers) / float64(numOutliers)
	if c.inliers == 0 {
		st.RiskRatio = math.Inf(1)
		return st
	}
	st.RiskRatio = st.Support / (float64(c.inliers) / float64(numInliers))
	return st
}

// expandable reports whether an itemset may be extended: support is anti-monotone, so an
// itemset below MinSupport has no qualifying supersets.
func (o Options) expandable(st ItemsetStats) bool {
	return st.OutlierCount > 0 && st.Support >= o.MinSupport
}

// accepts is the final acceptance test. An infinite risk ratio passes any threshold.
func (o Options) accepts(st ItemsetStats) bool {
	if !o.expandable(st) {
		return false
	}
	return math.IsInf(st.RiskRatio, 1) || st.RiskRatio >= o.MinRiskRatio
}

// rank orders results by risk ratio, then support (both descending), then itemset size and
// item ids (ascending).
func rank(results []ItemsetResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.stats.RiskRatio != b.stats.RiskRatio {
			return a.stats.RiskRatio > b.stats.RiskRatio
		}
		if a.stats.Support != b.stats.Support {
			return a.stats.Support > b.stats.Support
		}
		if len(a.ids) != len(b.ids) {
			return len(a.ids) < len(b.ids)
		}
		for k := range a.ids {
			if a.ids[k] != b.ids[k] {
				return a.ids[k] < b.ids[k]
			}
		}
		return false
	})
}
