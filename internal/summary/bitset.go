package summary

import "math/bits"

// bitset is a fixed-size set of row indices.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) set(i int) { b[i>>6] |= 1 << (uint(i) & 63) }

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// intersect stores a AND c into b. All three must have the same length.
func (b bitset) intersect(a, c bitset) {
	for i := range b {
		b[i] = a[i] & c[i]
	}
}

// andCount returns |a AND c| without allocating.
func andCount(a, c bitset) int {
	n := 0
	for i := range a {
		n += bits.OnesCount64(a[i] & c[i])
	}
	return n
}
