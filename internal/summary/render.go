package summary

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Markdown renders a compact report suitable for terminals or standalone docs.
func (s Snapshot) Markdown() string {
	var b strings.Builder
	b.WriteString("[EXPLANATION SUMMARY]\n")
	if s.Source != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Source))
	}
	b.WriteString(fmt.Sprintf("Rows: %d (outliers %d, inliers %d)\n", s.NumRows, s.NumOutliers, s.NumInliers))
	b.WriteString(fmt.Sprintf("Attributes: %s\n", strings.Join(s.Attributes, ", ")))
	combos := "on"
	if !s.UseAttributeCombinations {
		combos = "off"
	}
	b.WriteString(fmt.Sprintf("Thresholds: min support %.3f, min risk ratio %.2f, combinations %s\n", s.MinSupport, s.MinRiskRatio, combos))

	b.WriteString("\n[ITEMSETS]\n")
	if len(s.Itemsets) == 0 {
		b.WriteString("(none passed the thresholds)\n")
	}
	for i, it := range s.Itemsets {
		b.WriteString(fmt.Sprintf("%d. %s: support %.1f%% (%d outliers, %d inliers), risk ratio %s\n",
			i+1, safeVal(it.Label()), it.Support*100, it.OutlierCount, it.InlierCount, it.RiskRatio))
	}

	if len(s.Timings) > 0 {
		b.WriteString("\n[TIMINGS]\n")
		for _, t := range s.Timings {
			b.WriteString(fmt.Sprintf("- %s: %s\n", t.Stage, t.Duration))
		}
	}
	if s.NumOutliers == 0 {
		b.WriteString("\n[NOTES]\n- no rows matched the outlier predicate\n")
	}
	return b.String()
}

// Table renders the itemsets as a box-drawn table.
func (s Snapshot) Table() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s  outliers=%d inliers=%d", titleOr(s.Source), s.NumOutliers, s.NumInliers))
	t.AppendHeader(table.Row{"#", "Itemset", "Support", "Risk ratio", "Outliers", "Inliers"})
	for i, it := range s.Itemsets {
		t.AppendRow(table.Row{
			i + 1,
			it.Label(),
			fmt.Sprintf("%.1f%%", it.Support*100),
			it.RiskRatio.String(),
			it.OutlierCount,
			it.InlierCount,
		})
	}
	if len(s.Itemsets) == 0 {
		t.AppendFooter(table.Row{"", "no itemsets passed the thresholds"})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func titleOr(source string) string {
	if source == "" {
		return "explanation"
	}
	return source
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
