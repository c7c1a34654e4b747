// Package summary mines attribute-value itemsets that are over-represented among outlier
// rows of a labeled table.
//
// A run labels each row with Options.Predicate applied to Options.OutlierColumn, then
// searches the itemset lattice level by level. Itemsets below MinSupport are pruned along
// with all their supersets; survivors that also reach MinRiskRatio are reported.
package summary

import (
	"context"
	"math"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

// Summarizer runs itemset mining with a fixed set of options. It holds no per-run state
// and may be reused across tables and goroutines.
type Summarizer struct {
	opts Options
	log  *zap.Logger
}

// New creates a Summarizer. A nil logger disables logging.
func New(opts Options, log *zap.Logger) *Summarizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Summarizer{opts: opts, log: log}
}

// Options returns the options the summarizer was created with.
func (s *Summarizer) Options() Options { return s.opts }

// Summarize labels every row of t and returns the accepted itemsets in rank order.
// The input table is not modified.
func (s *Summarizer) Summarize(ctx context.Context, t Table) (*Explanation, error) {
	if err := s.opts.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, configErr("table", "no input table")
	}
	labels, err := s.label(t)
	if err != nil {
		return nil, err
	}
	enc, err := newEncoder(t, s.opts.Attributes)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c := newCounter(enc, labels)
	exp := &Explanation{
		numOutliers: c.numOutliers,
		numInliers:  c.numInliers,
		attributes:  append([]string(nil), s.opts.Attributes...),
		opts:        s.opts,
	}
	if c.numOutliers == 0 {
		s.log.Info("no outliers matched the predicate",
			zap.String("outlier_column", s.opts.OutlierColumn),
			zap.Int("rows", c.rows))
		return exp, nil
	}

	workers := s.opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	maxOrder := len(s.opts.Attributes)
	if s.opts.MaxOrder > 0 && s.opts.MaxOrder < maxOrder {
		maxOrder = s.opts.MaxOrder
	}
	if !s.opts.UseAttributeCombinations {
		maxOrder = 1
	}

	lat := &lattice{enc: enc}
	level := lat.first()
	for k := 1; len(level) > 0; k++ {
		results, err := c.countLevel(ctx, level, workers)
		if err != nil {
			return nil, err
		}
		var survivors []itemset
		accepted := 0
		for i, set := range level {
			st := computeStats(results[i], c.numOutliers, c.numInliers)
			if !s.opts.expandable(st) {
				continue
			}
			survivors = append(survivors, set)
			if s.opts.accepts(st) {
				exp.results = append(exp.results, ItemsetResult{items: enc.decode(set), ids: set, stats: st})
				accepted++
			}
		}
		s.log.Debug("lattice level done",
			zap.Int("order", k),
			zap.Int("candidates", len(level)),
			zap.Int("survivors", len(survivors)),
			zap.Int("accepted", accepted))
		if k >= maxOrder {
			break
		}
		level = lat.next(survivors)
	}
	rank(exp.results)

	s.log.Info("summarized",
		zap.Int("rows", c.rows),
		zap.Int("outliers", c.numOutliers),
		zap.Int("items", enc.numItems()),
		zap.Int("itemsets", len(exp.results)),
		zap.Duration("elapsed", time.Since(start)))
	return exp, nil
}

// label evaluates the predicate for every row. A missing or non-finite label value is an
// error rather than an inlier.
func (s *Summarizer) label(t Table) ([]bool, error) {
	col := s.opts.OutlierColumn
	kind, ok := t.ColumnType(col)
	if !ok {
		return nil, configErr("outlier_column", "column %q not found", col)
	}
	if kind != dataframe.Numeric {
		return nil, &LabelEvaluationError{Column: col, Row: -1, Reason: "label column must be numeric"}
	}
	pred := s.opts.predicate()
	n := t.NumRows()
	out := make([]bool, n)
	for row := 0; row < n; row++ {
		v, ok := t.Float(col, row)
		if !ok || math.IsInf(v, 0) {
			return nil, &LabelEvaluationError{Column: col, Row: row, Reason: "missing label value"}
		}
		out[row] = pred(v)
	}
	return out, nil
}
