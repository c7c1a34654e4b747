package summary

import (
	"encoding/binary"
	"slices"
)

// itemset is a canonical (ascending, duplicate-free) sequence of item ids with at most one
// item per attribute.
type itemset []int

func (s itemset) key() string {
	b := make([]byte, 0, 4*len(s))
	for _, id := range s {
		b = binary.BigEndian.AppendUint32(b, uint32(id))
	}
	return string(b)
}

func (s itemset) last() int { return s[len(s)-1] }

// lattice generates candidate itemsets level by level.
type lattice struct {
	enc *encoder
}

// first returns every item as a singleton, in id order.
func (l *lattice) first() []itemset {
	out := make([]itemset, l.enc.numItems())
	for id := range out {
		out[id] = itemset{id}
	}
	return out
}

// next joins the surviving itemsets of one level into candidates one item larger. A
// survivor is only extended with a surviving singleton whose id exceeds its last id and
// whose attribute it does not already constrain, so each canonical itemset is generated once.
// A candidate is kept only if every one of its immediate subsets survived.
func (l *lattice) next(survivors []itemset) []itemset {
	if len(survivors) == 0 {
		return nil
	}
	alive := make(map[string]struct{}, len(survivors))
	for _, s := range survivors {
		alive[s.key()] = struct{}{}
	}
	var singles []int
	if len(survivors[0]) == 1 {
		for _, s := range survivors {
			singles = append(singles, s[0])
		}
	} else {
		singles = l.singletons(alive)
	}
	slices.Sort(singles)

	var out []itemset
	sub := make(itemset, 0, len(survivors[0]))
	for _, s := range survivors {
		for _, j := range singles {
			if j <= s.last() || l.constrains(s, l.enc.itemAttr[j]) {
				continue
			}
			cand := make(itemset, len(s)+1)
			copy(cand, s)
			cand[len(s)] = j
			if l.subsetsAlive(cand, alive, sub) {
				out = append(out, cand)
			}
		}
	}
	return out
}

// singletons recovers the surviving items from multi-item survivors: an item that appears in
// a surviving itemset necessarily survived as a singleton.
func (l *lattice) singletons(alive map[string]struct{}) []int {
	seen := map[int]bool{}
	var out []int
	for k := range alive {
		b := []byte(k)
		for i := 0; i+4 <= len(b); i += 4 {
			id := int(binary.BigEndian.Uint32(b[i : i+4]))
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

func (l *lattice) constrains(s itemset, attr int) bool {
	for _, id := range s {
		if l.enc.itemAttr[id] == attr {
			return true
		}
	}
	return false
}

// subsetsAlive checks the subsets obtained by dropping each item except the last; dropping
// the last yields the survivor the candidate was extended from.
func (l *lattice) subsetsAlive(cand itemset, alive map[string]struct{}, sub itemset) bool {
	if len(cand) <= 2 {
		return true
	}
	for skip := 0; skip < len(cand)-1; skip++ {
		sub = sub[:0]
		for i, id := range cand {
			if i != skip {
				sub = append(sub, id)
			}
		}
		if _, ok := alive[sub.key()]; !ok {
			return false
		}
	}
	return true
}
