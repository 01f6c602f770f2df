package markov

import (
	"cmp"
	"slices"
)

// Entry is one observed symbol of a Distribution and its probability.
type Entry[K cmp.Ordered] struct {
	Symbol K
	Prob   float64
}

// Distribution maps discrete symbols (characters or lengths) to
// probabilities. Observed entries are kept sorted by symbol, which is also
// the order the sampler walks them in. The Others bucket holds candidate
// symbols that were never observed; it is a sample space for fallback draws
// and carries no probability of its own.
//
// A Distribution is never modified after construction.
type Distribution[K cmp.Ordered] struct {
	entries []Entry[K]
	index   map[K]int
	others  []K
}

// NewDistribution returns a distribution over the given entries. Entries are
// sorted by symbol; if a symbol appears more than once the last one wins.
func NewDistribution[K cmp.Ordered](entries []Entry[K]) *Distribution[K] {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b Entry[K]) int {
		return cmp.Compare(a.Symbol, b.Symbol)
	})

	d := &Distribution[K]{
		entries: make([]Entry[K], 0, len(sorted)),
		index:   make(map[K]int, len(sorted)),
	}
	for _, e := range sorted {
		if i, ok := d.index[e.Symbol]; ok {
			d.entries[i] = e
			continue
		}
		d.index[e.Symbol] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d
}

// emptyDistribution is used wherever a table has no trained row.
func emptyDistribution[K cmp.Ordered]() *Distribution[K] {
	return &Distribution[K]{index: map[K]int{}}
}

// Len returns the number of observed entries, excluding Others.
func (d *Distribution[K]) Len() int {
	return len(d.entries)
}

// Entries returns the observed entries in sampling order. The returned slice
// must not be modified.
func (d *Distribution[K]) Entries() []Entry[K] {
	return d.entries
}

// Prob returns the probability of an observed symbol.
func (d *Distribution[K]) Prob(symbol K) (float64, bool) {
	i, ok := d.index[symbol]
	if !ok {
		return 0, false
	}
	return d.entries[i].Prob, true
}

// Others returns the fallback candidates. The returned slice must not be
// modified.
func (d *Distribution[K]) Others() []K {
	return d.others
}

// Sum returns the total probability of the observed entries.
func (d *Distribution[K]) Sum() float64 {
	var total float64
	for _, e := range d.entries {
		total += e.Prob
	}
	return total
}

// withOthers returns a copy of d whose Others bucket is the given candidates.
// The observed entries are shared.
func (d *Distribution[K]) withOthers(others []K) *Distribution[K] {
	return &Distribution[K]{
		entries: d.entries,
		index:   d.index,
		others:  others,
	}
}

// missing returns the candidates that are not observed symbols of d, in
// candidate order.
func (d *Distribution[K]) missing(candidates []K) []K {
	out := make([]K, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := d.index[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
