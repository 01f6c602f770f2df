package markov

import (
	"strings"
)

const (
	// MaxLevels is the number of rightmost labels of a name that contribute
	// to a model. Labels further to the left are dropped.
	MaxLevels = 4

	// NgramLength is the order of the character chain. Transitions are keyed
	// by a single preceding character.
	NgramLength = 2
)

// Histogram holds the raw counts gathered from a training corpus. It is
// written once by Add during a single pass and then handed to Build.
type Histogram struct {
	// Names is the number of names that contributed at least one label.
	Names int
	// Skipped is the number of names that had no usable label.
	Skipped int
	// TotalLength is the number of characters over all contributing names,
	// separators included.
	TotalLength int

	// CharCount counts every character of every contributing name.
	CharCount map[string]int
	// DepthCount is keyed by the 0-based number of levels used (k-1).
	DepthCount map[int]int

	// LabelsPerLevel is the number of labels that fed each level.
	LabelsPerLevel [MaxLevels]int
	FirstChars     [MaxLevels]map[string]int
	Lengths        [MaxLevels]map[int]int
	Ngrams         [MaxLevels]map[string]int
	// NgramStarts counts the first character of every n-gram per level.
	NgramStarts [MaxLevels]map[string]int
}

// NewHistogram returns an empty histogram.
func NewHistogram() *Histogram {
	h := &Histogram{
		CharCount:  make(map[string]int),
		DepthCount: make(map[int]int),
	}
	for i := range MaxLevels {
		h.FirstChars[i] = make(map[string]int)
		h.Lengths[i] = make(map[int]int)
		h.Ngrams[i] = make(map[string]int)
		h.NgramStarts[i] = make(map[string]int)
	}
	return h
}

// Normalize prepares a raw corpus line for training.
func Normalize(line string) string {
	return strings.ToLower(strings.TrimSpace(line))
}

// Labels splits a name on '.' and drops empty labels, so leading, trailing
// and repeated dots are ignored.
func Labels(name string) []string {
	parts := strings.Split(name, ".")
	labels := parts[:0]
	for _, p := range parts {
		if p != "" {
			labels = append(labels, p)
		}
	}
	return labels
}

// Add feeds one normalized name into the histogram. Only the rightmost
// MaxLevels labels are counted; level 0 is the rightmost label. Add reports
// false when the name has no usable label and was skipped.
func (h *Histogram) Add(name string) bool {
	labels := Labels(name)
	n := len(labels)
	if n == 0 {
		h.Skipped++
		return false
	}
	k := min(n, MaxLevels)
	labels = labels[n-k:]

	h.Names++
	h.DepthCount[k-1]++

	for i := range k {
		label := []rune(labels[k-1-i])

		h.LabelsPerLevel[i]++
		h.FirstChars[i][string(label[0])]++
		h.Lengths[i][len(label)]++

		for j := 0; j+NgramLength <= len(label); j++ {
			h.Ngrams[i][string(label[j:j+NgramLength])]++
			h.NgramStarts[i][string(label[j])]++
		}
	}

	for _, r := range name {
		h.CharCount[string(r)]++
		h.TotalLength++
	}
	return true
}

// Collect builds a histogram from a sequence of raw names, normalizing each
// one the way Train normalizes corpus lines.
func Collect(names []string) *Histogram {
	h := NewHistogram()
	for _, name := range names {
		h.Add(Normalize(name))
	}
	return h
}
