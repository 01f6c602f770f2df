package markov

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/natefinch/atomic"
)

// Document is the serialized form of a Model.
//
// Level keys of FreqWordLength, FreqFirst and Trans are 0-based ("0".."3")
// while FreqDomLength is keyed by the 1-based depth ("1".."4"). Consumers
// of existing model files depend on this difference.
type Document struct {
	Dist  DistDocument               `json:"dist"`
	Trans map[string]map[string]Prob `json:"trans"` // level -> bigram -> probability
}

// DistDocument holds the non-transition tables of a Document.
type DistDocument struct {
	FreqChar       map[string]Prob            `json:"freq_char"`
	FreqWordLength map[string]map[string]Prob `json:"freq_word_length"` // level -> length -> probability
	FreqFirst      map[string]map[string]Prob `json:"freq_first"`       // level -> char -> probability
	FreqDomLength  map[string]Prob            `json:"freq_dom_length"`  // 1-based depth -> probability
}

// Prob is a probability in a model document. It decodes from a JSON number
// or from a string holding a number, which older trainers emitted.
type Prob float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Prob) UnmarshalJSON(data []byte) error {
	var f float64
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("probability %q: %w", s, err)
		}
		f = v
	} else if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return fmt.Errorf("probability %v out of range", f)
	}
	*p = Prob(f)
	return nil
}

// Document returns the serialized form of m. Others buckets are not
// serialized; they are recomputed by Extend.
func (m *Model) Document() Document {
	doc := Document{
		Dist: DistDocument{
			FreqChar:       make(map[string]Prob, m.charFreq.Len()),
			FreqWordLength: make(map[string]map[string]Prob, MaxLevels),
			FreqFirst:      make(map[string]map[string]Prob, MaxLevels),
			FreqDomLength:  make(map[string]Prob, m.depth.Len()),
		},
		Trans: make(map[string]map[string]Prob, MaxLevels),
	}

	for _, e := range m.charFreq.Entries() {
		doc.Dist.FreqChar[e.Symbol] = Prob(e.Prob)
	}
	for _, e := range m.depth.Entries() {
		doc.Dist.FreqDomLength[strconv.Itoa(e.Symbol)] = Prob(e.Prob)
	}

	for i := range MaxLevels {
		level := strconv.Itoa(i)

		lengths := make(map[string]Prob, m.wordLength[i].Len())
		for _, e := range m.wordLength[i].Entries() {
			lengths[strconv.Itoa(e.Symbol)] = Prob(e.Prob)
		}
		doc.Dist.FreqWordLength[level] = lengths

		firsts := make(map[string]Prob, m.first[i].Len())
		for _, e := range m.first[i].Entries() {
			firsts[e.Symbol] = Prob(e.Prob)
		}
		doc.Dist.FreqFirst[level] = firsts

		bigrams := make(map[string]Prob)
		for from, row := range m.trans[i] {
			for _, e := range row.Entries() {
				bigrams[from+e.Symbol] = Prob(e.Prob)
			}
		}
		doc.Trans[level] = bigrams
	}
	return doc
}

// FromDocument rebuilds a Model from its serialized form. The model carries
// no Others buckets until Extend is called. Errors match ErrModelLoad.
func FromDocument(doc Document) (*Model, error) {
	m := &Model{}

	chars := make([]Entry[string], 0, len(doc.Dist.FreqChar))
	for c, p := range doc.Dist.FreqChar {
		chars = append(chars, Entry[string]{Symbol: c, Prob: float64(p)})
	}
	m.charFreq = NewDistribution(chars)

	depths := make([]Entry[int], 0, len(doc.Dist.FreqDomLength))
	for key, p := range doc.Dist.FreqDomLength {
		depth, err := parseKey(key, 0, MaxLevels)
		if err != nil {
			return nil, loadError(fmt.Errorf("freq_dom_length: %w", err))
		}
		depths = append(depths, Entry[int]{Symbol: depth, Prob: float64(p)})
	}
	m.depth = NewDistribution(depths)

	for key, table := range doc.Dist.FreqWordLength {
		level, err := parseKey(key, 0, MaxLevels-1)
		if err != nil {
			return nil, loadError(fmt.Errorf("freq_word_length: %w", err))
		}
		entries := make([]Entry[int], 0, len(table))
		for lk, p := range table {
			length, err := parseKey(lk, 1, math.MaxInt32)
			if err != nil {
				return nil, loadError(fmt.Errorf("freq_word_length[%d]: %w", level, err))
			}
			entries = append(entries, Entry[int]{Symbol: length, Prob: float64(p)})
		}
		m.wordLength[level] = NewDistribution(entries)
	}

	for key, table := range doc.Dist.FreqFirst {
		level, err := parseKey(key, 0, MaxLevels-1)
		if err != nil {
			return nil, loadError(fmt.Errorf("freq_first: %w", err))
		}
		entries := make([]Entry[string], 0, len(table))
		for c, p := range table {
			entries = append(entries, Entry[string]{Symbol: c, Prob: float64(p)})
		}
		m.first[level] = NewDistribution(entries)
	}

	for key, table := range doc.Trans {
		level, err := parseKey(key, 0, MaxLevels-1)
		if err != nil {
			return nil, loadError(fmt.Errorf("trans: %w", err))
		}
		rows := make(map[string][]Entry[string])
		for bigram, p := range table {
			from, to, ok := splitBigram(bigram)
			if !ok {
				return nil, loadError(fmt.Errorf("trans[%d]: key %q is not a bigram", level, bigram))
			}
			rows[from] = append(rows[from], Entry[string]{Symbol: to, Prob: float64(p)})
		}
		m.trans[level] = make(map[string]*Distribution[string], len(rows))
		for from, entries := range rows {
			m.trans[level][from] = NewDistribution(entries)
		}
	}

	return m.finalize(), nil
}

func parseKey(key string, lo, hi int) (int, error) {
	v, err := strconv.Atoi(key)
	if err != nil {
		return 0, fmt.Errorf("key %q is not an integer", key)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("key %d outside [%d, %d]", v, lo, hi)
	}
	return v, nil
}

func loadError(err error) error {
	return &ModelLoadError{Err: err}
}

// WriteJSON encodes the model document to w.
func (m *Model) WriteJSON(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(m.Document())
}

// ReadJSON decodes a model document from r.
func ReadJSON(r io.Reader) (*Model, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, loadError(fmt.Errorf("failed to decode json model: %w", err))
	}
	return FromDocument(doc)
}

// LoadFile reads a model document from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	m, err := ReadJSON(f)
	if err != nil {
		var le *ModelLoadError
		if errors.As(err, &le) {
			le.Path = path
			return nil, le
		}
		return nil, &ModelLoadError{Path: path, Err: err}
	}
	return m, nil
}

// SaveFile writes the model document to path atomically.
func (m *Model) SaveFile(path string) error {
	var buf bytes.Buffer
	if err := m.WriteJSON(&buf); err != nil {
		return fmt.Errorf("could not encode model: %w", err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("could not write model to %s: %w", path, err)
	}
	return nil
}
