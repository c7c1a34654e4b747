package summary

import (
	"github.com/KaramelBytes/explain-cli/internal/dataframe"
)

// AttributeValue is one equality condition of an explanation.
type AttributeValue struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Value     string `json:"value" yaml:"value"`
}

func (a AttributeValue) String() string { return a.Attribute + "=" + a.Value }

const noItem = -1

// encoder interns the (attribute, value) pairs of the explanation columns. Item ids are
// assigned in first-seen order, attribute by attribute, so items of one attribute are
// contiguous.
type encoder struct {
	attrs    []string
	items    []AttributeValue
	itemAttr []int
	// cells[a][row] is the item id of row's value for attribute a, or noItem.
	cells [][]int
}

func newEncoder(t Table, attrs []string) (*encoder, error) {
	if len(attrs) == 0 {
		return nil, configErr("attributes", "at least one explanation attribute is required")
	}
	seen := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		if seen[a] {
			return nil, configErr("attributes", "duplicate attribute %q", a)
		}
		seen[a] = true
		kind, ok := t.ColumnType(a)
		if !ok {
			return nil, configErr("attributes", "column %q not found", a)
		}
		if kind != dataframe.Categorical {
			return nil, configErr("attributes", "column %q is %s, explanations need categorical columns", a, kind)
		}
	}

	n := t.NumRows()
	e := &encoder{
		attrs: append([]string(nil), attrs...),
		cells: make([][]int, len(attrs)),
	}
	for ai, a := range attrs {
		ids := map[string]int{}
		col := make([]int, n)
		for row := 0; row < n; row++ {
			v, ok := t.String(a, row)
			if !ok {
				col[row] = noItem
				continue
			}
			id, known := ids[v]
			if !known {
				id = len(e.items)
				ids[v] = id
				e.items = append(e.items, AttributeValue{Attribute: a, Value: v})
				e.itemAttr = append(e.itemAttr, ai)
			}
			col[row] = id
		}
		e.cells[ai] = col
	}
	return e, nil
}

func (e *encoder) numItems() int { return len(e.items) }

func (e *encoder) decode(set itemset) []AttributeValue {
	out := make([]AttributeValue, len(set))
	for i, id := range set {
		out[i] = e.items[id]
	}
	return out
}
