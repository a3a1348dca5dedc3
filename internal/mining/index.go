package mining

import (
	"sort"

	"github.com/Veraticus/rulecart/internal/model"
	"github.com/bits-and-blooms/bitset"
)

// Index maps every attribute=value item of the indexed columns to the set of
// rows holding it. It is built once per table and shared read-only.
type Index struct {
	items   map[model.Item]*bitset.BitSet
	values  map[string][]string
	all     *bitset.BitSet
	columns []string
	n       uint
}

// NewIndex indexes the given columns of the table.
func NewIndex(table *model.Table, columns []string) *Index {
	n := uint(table.Len())
	ix := &Index{
		items:   make(map[model.Item]*bitset.BitSet),
		values:  make(map[string][]string, len(columns)),
		all:     bitset.New(n).FlipRange(0, n),
		columns: append([]string(nil), columns...),
		n:       n,
	}

	for i, row := range table.Rows {
		for _, col := range columns {
			v, ok := row[col]
			if !ok {
				continue
			}
			item := model.Item{Attribute: col, Value: v}
			rows, seen := ix.items[item]
			if !seen {
				rows = bitset.New(n)
				ix.items[item] = rows
				ix.values[col] = append(ix.values[col], v)
			}
			rows.Set(uint(i))
		}
	}
	for col := range ix.values {
		sort.Strings(ix.values[col])
	}

	return ix
}

// Len returns the number of indexed rows.
func (ix *Index) Len() int {
	return int(ix.n)
}

// All returns a fresh set holding every row.
func (ix *Index) All() *bitset.BitSet {
	return ix.all.Clone()
}

// Rows returns the rows holding the item. The returned set must not be modified.
func (ix *Index) Rows(item model.Item) *bitset.BitSet {
	if rows, ok := ix.items[item]; ok {
		return rows
	}
	return bitset.New(ix.n)
}

// Cover returns a fresh set of rows matching every item; all rows when empty.
func (ix *Index) Cover(items []model.Item) *bitset.BitSet {
	out := ix.all.Clone()
	for _, item := range items {
		out.InPlaceIntersection(ix.Rows(item))
	}
	return out
}

// Items returns the items of a column ordered by value.
func (ix *Index) Items(column string) []model.Item {
	values := ix.values[column]
	out := make([]model.Item, len(values))
	for i, v := range values {
		out[i] = model.Item{Attribute: column, Value: v}
	}
	return out
}

// FourFold is the contingency table of a rule over the indexed rows:
// A antecedent and consequent, B antecedent only, C consequent only, D neither.
type FourFold struct {
	A int `json:"a" yaml:"a"`
	B int `json:"b" yaml:"b"`
	C int `json:"c" yaml:"c"`
	D int `json:"d" yaml:"d"`
}

// FourFold computes the contingency table of the rule.
func (ix *Index) FourFold(rule model.CandidateRule) FourFold {
	ante := ix.Cover(rule.Antecedent)
	cons := ix.Rows(rule.Consequent)

	a := int(ante.IntersectionCardinality(cons))
	b := int(ante.Count()) - a
	c := int(cons.Count()) - a
	return FourFold{A: a, B: b, C: c, D: int(ix.n) - a - b - c}
}
