package markov

import (
	"fmt"
)

// ExtendOptions configures Model.Extend.
type ExtendOptions struct {
	// CustomLength is the number of levels supplied by fixed prefix or
	// suffix labels. Depths at or below it are removed from the depth
	// distribution.
	CustomLength int
	// NumLevels is the number of levels generation may produce; depths
	// above CustomLength+NumLevels are removed. Zero means MaxLevels.
	NumLevels int
	// MinWordLength and MaxWordLength widen the per-level length range used
	// to fill the length Others bucket. Zero leaves a bound unchanged.
	MinWordLength [MaxLevels]int
	MaxWordLength [MaxLevels]int
}

// Extend returns a copy of m in which every distribution carries an Others
// bucket:
//
//   - each transition row: the alphabet minus the characters observed after
//     that character;
//   - each first-character distribution: the alphabet minus the observed
//     first characters;
//   - each word-length distribution: every length in [min, max] that was not
//     observed.
//
// The depth distribution is restricted to the window
// [CustomLength+1, CustomLength+NumLevels] and renormalized to sum to 1.
func (m *Model) Extend(opts ExtendOptions) (*Model, error) {
	numLevels := opts.NumLevels
	if numLevels == 0 {
		numLevels = MaxLevels
	}
	if numLevels < 0 || numLevels > MaxLevels {
		return nil, fmt.Errorf("%w: %d levels requested, at most %d", ErrInvalidLevel, numLevels, MaxLevels)
	}

	depth, err := depthWindow(m.depth, opts.CustomLength+1, opts.CustomLength+numLevels)
	if err != nil {
		return nil, err
	}

	ext := &Model{
		charFreq: m.charFreq,
		depth:    depth,
		special:  m.special,
		alphabet: m.alphabet,
		names:    m.names,
		extended: true,
	}

	for i := range MaxLevels {
		ext.first[i] = m.first[i].withOthers(m.first[i].missing(m.alphabet))

		ext.trans[i] = make(map[string]*Distribution[string], len(m.trans[i]))
		for from, row := range m.trans[i] {
			ext.trans[i][from] = row.withOthers(row.missing(m.alphabet))
		}

		b := m.bounds[i]
		if lo := opts.MinWordLength[i]; lo > 0 && (b.Min == 0 || lo < b.Min) {
			b.Min = lo
		}
		if hi := opts.MaxWordLength[i]; hi > b.Max {
			b.Max = hi
		}
		ext.bounds[i] = b

		var lengths []int
		if b.Min > 0 {
			for l := b.Min; l <= b.Max; l++ {
				lengths = append(lengths, l)
			}
		}
		ext.wordLength[i] = m.wordLength[i].withOthers(m.wordLength[i].missing(lengths))
	}

	return ext, nil
}

func depthWindow(d *Distribution[int], lo, hi int) (*Distribution[int], error) {
	var kept []Entry[int]
	var total float64
	for _, e := range d.Entries() {
		if e.Symbol < lo || e.Symbol > hi {
			continue
		}
		kept = append(kept, e)
		total += e.Prob
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: depths %d..%d", ErrEmptyDepthWindow, lo, hi)
	}
	for i := range kept {
		kept[i].Prob /= total
	}
	return NewDistribution(kept), nil
}
