package markov

import (
	"maps"
	"slices"
)

// Bounds is the range of label lengths observed at one level.
type Bounds struct {
	Min int
	Max int
}

// Model is a trained name model. It is built once, by Build or by decoding
// a Document, and is never mutated afterwards; Extend returns a new Model.
// A Model is safe for concurrent use by multiple goroutines.
type Model struct {
	charFreq   *Distribution[string]
	depth      *Distribution[int] // keyed by 1-based depth
	wordLength [MaxLevels]*Distribution[int]
	first      [MaxLevels]*Distribution[string]
	trans      [MaxLevels]map[string]*Distribution[string]
	bounds     [MaxLevels]Bounds

	special  []string
	alphabet []string

	names    int
	extended bool
}

// finalize derives the per-level bounds and the generation alphabet from
// the distributions already set on m.
func (m *Model) finalize() *Model {
	for i := range MaxLevels {
		if m.wordLength[i] == nil {
			m.wordLength[i] = emptyDistribution[int]()
		}
		if m.first[i] == nil {
			m.first[i] = emptyDistribution[string]()
		}
		if m.trans[i] == nil {
			m.trans[i] = make(map[string]*Distribution[string])
		}
		m.bounds[i] = lengthBounds(m.wordLength[i])
	}
	if m.charFreq == nil {
		m.charFreq = emptyDistribution[string]()
	}
	if m.depth == nil {
		m.depth = emptyDistribution[int]()
	}

	m.special = m.special[:0]
	for _, e := range m.charFreq.Entries() {
		if !isCanonical(e.Symbol) {
			m.special = append(m.special, e.Symbol)
		}
	}
	m.alphabet = buildAlphabet(m.special)
	return m
}

func lengthBounds(d *Distribution[int]) Bounds {
	entries := d.Entries()
	if len(entries) == 0 {
		return Bounds{}
	}
	// entries are sorted by length
	return Bounds{Min: entries[0].Symbol, Max: entries[len(entries)-1].Symbol}
}

func isCanonical(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func buildAlphabet(special []string) []string {
	alphabet := make([]string, 0, 36+len(special))
	for c := 'a'; c <= 'z'; c++ {
		alphabet = append(alphabet, string(c))
	}
	alphabet = append(alphabet, special...)
	for c := '0'; c <= '9'; c++ {
		alphabet = append(alphabet, string(c))
	}
	return alphabet
}

// CharFrequencies returns the distribution of characters over all names.
func (m *Model) CharFrequencies() *Distribution[string] { return m.charFreq }

// Depth returns the distribution of the number of levels per name, keyed
// 1-based (a name with three labels has depth 3).
func (m *Model) Depth() *Distribution[int] { return m.depth }

// WordLength returns the label length distribution at a level.
func (m *Model) WordLength(level int) *Distribution[int] { return m.wordLength[level] }

// FirstChars returns the first-character distribution at a level.
func (m *Model) FirstChars(level int) *Distribution[string] { return m.first[level] }

// Transitions returns the distribution of characters following from at a
// level, and whether such a row was trained.
func (m *Model) Transitions(level int, from string) (*Distribution[string], bool) {
	d, ok := m.trans[level][from]
	return d, ok
}

// TransitionSources returns the characters that have a trained transition
// row at a level, sorted.
func (m *Model) TransitionSources(level int) []string {
	return slices.Sorted(maps.Keys(m.trans[level]))
}

// Bounds returns the minimum and maximum label length observed at a level.
func (m *Model) Bounds(level int) Bounds { return m.bounds[level] }

// SpecialChars returns the characters outside a-z and 0-9 that appeared in
// training. The label separator is one of them once any dotted name was seen.
func (m *Model) SpecialChars() []string { return slices.Clone(m.special) }

// Alphabet returns the full generation alphabet: a-z, the special
// characters, then 0-9.
func (m *Model) Alphabet() []string { return slices.Clone(m.alphabet) }

// NamesTrained returns the number of names the model was built from, or 0
// for a model decoded from a document.
func (m *Model) NamesTrained() int { return m.names }

// Extended reports whether the model carries Others buckets.
func (m *Model) Extended() bool { return m.extended }
