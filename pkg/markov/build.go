package markov

// Build normalizes a histogram into a Model without Others buckets.
//
// Character frequencies are divided by the total character count, depth
// frequencies by the number of contributing names (and stored under the
// 1-based depth), and per-level length and first-character frequencies by
// the number of labels that fed that level. A transition probability is the
// bigram count divided by the number of bigrams sharing its first character
// at the same level.
func Build(h *Histogram) (*Model, error) {
	if h.Names == 0 {
		return nil, ErrEmptyCorpus
	}

	m := &Model{names: h.Names}

	chars := make([]Entry[string], 0, len(h.CharCount))
	for c, n := range h.CharCount {
		chars = append(chars, Entry[string]{Symbol: c, Prob: float64(n) / float64(h.TotalLength)})
	}
	m.charFreq = NewDistribution(chars)

	depths := make([]Entry[int], 0, len(h.DepthCount))
	for level, n := range h.DepthCount {
		depths = append(depths, Entry[int]{Symbol: level + 1, Prob: float64(n) / float64(h.Names)})
	}
	m.depth = NewDistribution(depths)

	for i := range MaxLevels {
		total := float64(h.LabelsPerLevel[i])
		if total == 0 {
			continue
		}

		lengths := make([]Entry[int], 0, len(h.Lengths[i]))
		for length, n := range h.Lengths[i] {
			lengths = append(lengths, Entry[int]{Symbol: length, Prob: float64(n) / total})
		}
		m.wordLength[i] = NewDistribution(lengths)

		firsts := make([]Entry[string], 0, len(h.FirstChars[i]))
		for c, n := range h.FirstChars[i] {
			firsts = append(firsts, Entry[string]{Symbol: c, Prob: float64(n) / total})
		}
		m.first[i] = NewDistribution(firsts)

		rows := make(map[string][]Entry[string])
		for ngram, n := range h.Ngrams[i] {
			from, to, _ := splitBigram(ngram)
			rows[from] = append(rows[from], Entry[string]{
				Symbol: to,
				Prob:   float64(n) / float64(h.NgramStarts[i][from]),
			})
		}
		m.trans[i] = make(map[string]*Distribution[string], len(rows))
		for from, entries := range rows {
			m.trans[i][from] = NewDistribution(entries)
		}
	}

	return m.finalize(), nil
}

// splitBigram returns the two characters of a bigram key. ok is false when
// the key is not exactly two characters long.
func splitBigram(ngram string) (from, to string, ok bool) {
	r := []rune(ngram)
	if len(r) != 2 {
		return "", "", false
	}
	return string(r[0]), string(r[1]), true
}
