package markov

import (
	"errors"
	"slices"
	"testing"
)

func TestLabels(t *testing.T) {
	testCases := []struct {
		name string
		want []string
	}{
		{name: "www.example.com", want: []string{"www", "example", "com"}},
		{name: ".a..b.", want: []string{"a", "b"}},
		{name: "...", want: []string{}},
		{name: "", want: []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Labels(tc.name)
			if !slices.Equal(got, tc.want) {
				t.Errorf("Labels(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestCollect(t *testing.T) {
	h := Collect([]string{" WWW.Example.COM ", "", "ftp.example.com."})
	if h.Names != 2 || h.Skipped != 1 {
		t.Errorf("Names/Skipped = %d/%d, want 2/1", h.Names, h.Skipped)
	}
	if h.FirstChars[2]["w"] != 1 || h.FirstChars[2]["W"] != 0 {
		t.Errorf("level 2 first characters = %v, want lower-cased w", h.FirstChars[2])
	}
	if h.CharCount["."] != 5 {
		t.Errorf("separator count = %d, want 5", h.CharCount["."])
	}
}

func TestHistogramAdd(t *testing.T) {
	h := NewHistogram()
	if h.Add("...") {
		t.Error("Add() accepted a name without labels")
	}
	if !h.Add("a.b.c.d.e.f") {
		t.Fatal("Add() rejected a six-label name")
	}

	if h.Names != 1 || h.Skipped != 1 {
		t.Errorf("Names/Skipped = %d/%d, want 1/1", h.Names, h.Skipped)
	}
	// only the rightmost four labels are used: f, e, d, c
	if h.DepthCount[MaxLevels-1] != 1 {
		t.Errorf("DepthCount = %v, want one name at depth %d", h.DepthCount, MaxLevels)
	}
	for i, want := range []string{"f", "e", "d", "c"} {
		if h.FirstChars[i][want] != 1 {
			t.Errorf("level %d first chars = %v, want %q", i, h.FirstChars[i], want)
		}
	}
	// every character of the name counts, dropped labels included
	if h.TotalLength != len("a.b.c.d.e.f") || h.CharCount["a"] != 1 || h.CharCount["."] != 5 {
		t.Errorf("TotalLength = %d, CharCount = %v", h.TotalLength, h.CharCount)
	}
}

func TestBuildDepthScenario(t *testing.T) {
	m := trainTestModel(t, "www.example.com", "ftp.example.com", "mail.example.com")

	if p, _ := m.Depth().Prob(3); p != 1 {
		t.Errorf("depth P(3) = %v, want 1", p)
	}
	if p, _ := m.FirstChars(0).Prob("c"); p != 1 {
		t.Errorf("level 0 P(first=c) = %v, want 1", p)
	}
	if p, _ := m.WordLength(0).Prob(3); p != 1 {
		t.Errorf("level 0 P(len=3) = %v, want 1", p)
	}
	for _, c := range []string{"w", "f", "m"} {
		if p, _ := m.FirstChars(2).Prob(c); !approxEqual(p, 1.0/3) {
			t.Errorf("level 2 P(first=%s) = %v, want 1/3", c, p)
		}
	}
	// "www" contributes w->w twice out of the two bigrams starting with w
	if row, ok := m.Transitions(2, "w"); !ok {
		t.Error("missing level 2 transition row for w")
	} else if p, _ := row.Prob("w"); p != 1 {
		t.Errorf("level 2 P(w->w) = %v, want 1", p)
	}
}

func TestBuildSingleCharLabel(t *testing.T) {
	m := trainTestModel(t, "a.com")

	if p, _ := m.FirstChars(1).Prob("a"); p != 1 {
		t.Errorf("level 1 P(first=a) = %v, want 1", p)
	}
	if sources := m.TransitionSources(1); len(sources) != 0 {
		t.Errorf("level 1 has transition rows %v, want none", sources)
	}
	if _, ok := m.Transitions(1, "a"); ok {
		t.Error("unexpected transition row for a at level 1")
	}
	if b := m.Bounds(1); b != (Bounds{Min: 1, Max: 1}) {
		t.Errorf("level 1 bounds = %+v, want {1 1}", b)
	}
}

func TestBuildInvariants(t *testing.T) {
	m := trainTestModel(t, createBenchmarkCorpus()...)

	if sum := m.CharFrequencies().Sum(); !approxEqual(sum, 1) {
		t.Errorf("character frequencies sum to %v, want 1", sum)
	}
	if sum := m.Depth().Sum(); !approxEqual(sum, 1) {
		t.Errorf("depth distribution sums to %v, want 1", sum)
	}
	for level := range MaxLevels {
		if m.WordLength(level).Len() == 0 {
			continue
		}
		if sum := m.WordLength(level).Sum(); !approxEqual(sum, 1) {
			t.Errorf("level %d word lengths sum to %v, want 1", level, sum)
		}
		if sum := m.FirstChars(level).Sum(); !approxEqual(sum, 1) {
			t.Errorf("level %d first chars sum to %v, want 1", level, sum)
		}
		for _, from := range m.TransitionSources(level) {
			row, _ := m.Transitions(level, from)
			if sum := row.Sum(); sum > 1+floatTolerance {
				t.Errorf("level %d row %q sums to %v, want <= 1", level, from, sum)
			}
		}
	}
	if _, ok := m.WordLength(0).Prob(0); ok {
		t.Error("zero-length label recorded")
	}
}

func TestBuildEmpty(t *testing.T) {
	if _, err := Build(NewHistogram()); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestSpecialCharsAndAlphabet(t *testing.T) {
	m := trainTestModel(t, "my-host.example.com", "under_score.example.com")

	// the separator is seen in every dotted name
	if got := m.SpecialChars(); !slices.Equal(got, []string{"-", ".", "_"}) {
		t.Errorf("SpecialChars() = %q, want [- . _]", got)
	}
	alphabet := m.Alphabet()
	if len(alphabet) != 26+3+10 {
		t.Fatalf("alphabet has %d symbols, want 39", len(alphabet))
	}
	if alphabet[0] != "a" || alphabet[26] != "-" || alphabet[27] != "." || alphabet[28] != "_" || alphabet[29] != "0" {
		t.Errorf("alphabet order = %q", alphabet)
	}

	single := trainTestModel(t, "localhost")
	if got := single.SpecialChars(); len(got) != 0 {
		t.Errorf("SpecialChars() = %q for an undotted corpus, want none", got)
	}
	if got := len(single.Alphabet()); got != 36 {
		t.Errorf("alphabet has %d symbols, want 36", got)
	}
}

func TestNewDistributionDuplicates(t *testing.T) {
	d := NewDistribution([]Entry[string]{{"b", 0.1}, {"a", 0.2}, {"b", 0.3}})
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}
	if e := d.Entries(); e[0].Symbol != "a" || e[1].Symbol != "b" {
		t.Errorf("entries not sorted: %v", e)
	}
	if p, _ := d.Prob("b"); p != 0.3 {
		t.Errorf("duplicate symbol kept %v, want the last value 0.3", p)
	}
}
