package markov

import (
	"slices"
)

// scoreLabels splits name the way training does and returns at most the
// rightmost MaxLevels labels, reversed so that index i is level i.
func scoreLabels(name string) []string {
	labels := Labels(Normalize(name))
	if len(labels) > MaxLevels {
		labels = labels[len(labels)-MaxLevels:]
	}
	slices.Reverse(labels)
	return labels
}

// Score returns the likelihood of name under the model: the product of the
// depth probability and, for every level, the label length probability,
// the first-character probability and each character transition. The
// factors are treated as independent, so the result is a relative measure
// of typicality rather than a calibrated probability.
//
// Unobserved values are smoothed with eps, see the package function Score.
func (m *Model) Score(name string, eps Epsilons) float64 {
	labels := scoreLabels(name)
	alphabet := len(m.alphabet)

	p := Score(m.depth, 0, len(labels), alphabet)
	for level, label := range labels {
		chars := []rune(label)
		p *= Score(m.wordLength[level], eps.Length[level], len(chars), alphabet)
		p *= m.wordProbability(level, chars, eps)
	}
	return p
}

// wordProbability scores the first character and the transition chain of
// one label.
func (m *Model) wordProbability(level int, chars []rune, eps Epsilons) float64 {
	alphabet := len(m.alphabet)

	last := string(chars[0])
	p := Score(m.first[level], eps.Start[level], last, alphabet)
	for _, r := range chars[1:] {
		next := string(r)
		row, ok := m.trans[level][last]
		if !ok {
			row = emptyDistribution[string]()
		}
		p *= Score(row, eps.Transition[level], next, alphabet)
		last = next
	}
	return p
}

// Features are the raw per-level measurements of a name.
type Features struct {
	// Labels is the number of labels used, at most MaxLevels.
	Labels int
	// Lengths holds the length of the label at each level, 0 when absent.
	Lengths [MaxLevels]int
	// WordProbs holds the first-character and transition probability of the
	// label at each level, 1 when absent.
	WordProbs [MaxLevels]float64
}

// Features returns the per-level measurements Score is built from, without
// the depth and length factors.
func (m *Model) Features(name string, eps Epsilons) Features {
	labels := scoreLabels(name)
	f := Features{Labels: len(labels)}
	for i := range MaxLevels {
		f.WordProbs[i] = 1
	}
	for level, label := range labels {
		chars := []rune(label)
		f.Lengths[level] = len(chars)
		f.WordProbs[level] = m.wordProbability(level, chars, eps)
	}
	return f
}
