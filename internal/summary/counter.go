package summary

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type counts struct {
	outliers int
	inliers  int
}

// counter answers exact outlier/inlier counts for itemsets from a per-item row index that
// is built once and shared read-only by all workers.
type counter struct {
	rows        int
	outlierRows bitset
	index       []bitset
	numOutliers int
	numInliers  int
}

func newCounter(enc *encoder, isOutlier []bool) *counter {
	n := len(isOutlier)
	c := &counter{
		rows:        n,
		outlierRows: newBitset(n),
		index:       make([]bitset, enc.numItems()),
	}
	for row, out := range isOutlier {
		if out {
			c.outlierRows.set(row)
			c.numOutliers++
		}
	}
	c.numInliers = n - c.numOutliers
	for id := range c.index {
		c.index[id] = newBitset(n)
	}
	for _, col := range enc.cells {
		for row, id := range col {
			if id != noItem {
				c.index[id].set(row)
			}
		}
	}
	return c
}

// count intersects the rows of every item in set. scratch must hold c.rows bits and is
// overwritten.
func (c *counter) count(set itemset, scratch bitset) counts {
	if len(set) == 0 {
		return counts{outliers: c.numOutliers, inliers: c.numInliers}
	}
	rows := c.index[set[0]]
	if len(set) > 1 {
		scratch.intersect(rows, c.index[set[1]])
		for _, id := range set[2:] {
			scratch.intersect(scratch, c.index[id])
		}
		rows = scratch
	}
	total := rows.count()
	out := andCount(rows, c.outlierRows)
	return counts{outliers: out, inliers: total - out}
}

// countLevel counts every candidate of one lattice level. Candidates are split into
// contiguous chunks, one goroutine per chunk with its own scratch bitset; each result slot is
// written by exactly one goroutine.
func (c *counter) countLevel(ctx context.Context, level []itemset, workers int) ([]counts, error) {
	results := make([]counts, len(level))
	if len(level) == 0 {
		return results, nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(level) {
		workers = len(level)
	}
	chunk := (len(level) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(level); start += chunk {
		lo, hi := start, min(start+chunk, len(level))
		g.Go(func() error {
			scratch := newBitset(c.rows)
			for k := lo; k < hi; k++ {
				if (k-lo)%512 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				results[k] = c.count(level[k], scratch)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
