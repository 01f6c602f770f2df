package store

import (
	"fmt"
	"strconv"

	"github.com/CTAG07/hostgen/pkg/markov"
)

// eachEntry calls fn for every probability in doc, flattened into the
// (kind, level, symbol) rows of hostgen_entries.
func eachEntry(doc markov.Document, fn func(kind string, level int, symbol string, p float64) error) error {
	for c, p := range doc.Dist.FreqChar {
		if err := fn(KindChar, noLevel, c, float64(p)); err != nil {
			return err
		}
	}
	for depth, p := range doc.Dist.FreqDomLength {
		if err := fn(KindDepth, noLevel, depth, float64(p)); err != nil {
			return err
		}
	}

	perLevel := []struct {
		kind   string
		tables map[string]map[string]markov.Prob
	}{
		{KindWordLength, doc.Dist.FreqWordLength},
		{KindFirst, doc.Dist.FreqFirst},
		{KindTransition, doc.Trans},
	}
	for _, t := range perLevel {
		for key, table := range t.tables {
			level, err := strconv.Atoi(key)
			if err != nil {
				return fmt.Errorf("%s: level key %q is not an integer", t.kind, key)
			}
			for symbol, p := range table {
				if err := fn(t.kind, level, symbol, float64(p)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// document is a markov.Document being assembled from stored rows.
type document struct {
	markov.Document
}

func newDocument() *document {
	return &document{markov.Document{
		Dist: markov.DistDocument{
			FreqChar:       make(map[string]markov.Prob),
			FreqWordLength: make(map[string]map[string]markov.Prob),
			FreqFirst:      make(map[string]map[string]markov.Prob),
			FreqDomLength:  make(map[string]markov.Prob),
		},
		Trans: make(map[string]map[string]markov.Prob),
	}}
}

func (d *document) set(kind string, level int, symbol string, p float64) error {
	switch kind {
	case KindChar:
		d.Dist.FreqChar[symbol] = markov.Prob(p)
	case KindDepth:
		d.Dist.FreqDomLength[symbol] = markov.Prob(p)
	case KindWordLength:
		levelTable(d.Dist.FreqWordLength, level)[symbol] = markov.Prob(p)
	case KindFirst:
		levelTable(d.Dist.FreqFirst, level)[symbol] = markov.Prob(p)
	case KindTransition:
		levelTable(d.Trans, level)[symbol] = markov.Prob(p)
	default:
		return fmt.Errorf("unknown entry kind %q", kind)
	}
	return nil
}

func levelTable(tables map[string]map[string]markov.Prob, level int) map[string]markov.Prob {
	key := strconv.Itoa(level)
	t, ok := tables[key]
	if !ok {
		t = make(map[string]markov.Prob)
		tables[key] = t
	}
	return t
}
