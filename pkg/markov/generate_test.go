package markov

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

// mapFilter is an exact Filter for tests.
type mapFilter map[string]bool

func (f mapFilter) Test(name string) bool { return f[name] }
func (f mapFilter) Add(name string)       { f[name] = true }

func TestGenerate(t *testing.T) {
	m := extendTestModel(t, createBenchmarkCorpus()...)
	// without smoothing no Others draw can place a separator inside a label
	g, err := NewGenerator(m, WithRand(testRand()), WithEpsilons(Epsilons{}))
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	for range 500 {
		name, err := g.Generate(Affixes{})
		if errors.Is(err, ErrModelExhausted) {
			continue
		}
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		labels := strings.Split(name, ".")
		if len(labels) < 1 || len(labels) > MaxLevels {
			t.Errorf("name %q has %d labels", name, len(labels))
		}
		for level, label := range labels {
			if label == "" {
				t.Fatalf("name %q has an empty label", name)
			}
			b := m.Bounds(len(labels) - 1 - level)
			if n := len([]rune(label)); n < b.Min || n > b.Max {
				t.Errorf("label %q of %q has length %d outside %+v", label, name, n, b)
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	m := extendTestModel(t, createBenchmarkCorpus()...)

	draw := func() []string {
		g, err := NewGenerator(m, WithSeed(42))
		if err != nil {
			t.Fatalf("NewGenerator() failed: %v", err)
		}
		names, _, err := g.GenerateN(20, Affixes{}, nil)
		if err != nil {
			t.Fatalf("GenerateN() failed: %v", err)
		}
		return names
	}
	a, b := draw(), draw()
	if strings.Join(a, ",") != strings.Join(b, ",") {
		t.Errorf("same seed produced different names:\n%v\n%v", a, b)
	}
}

func TestGenerateAffixes(t *testing.T) {
	m, err := trainTestModel(t, "www.example.com", "ftp.example.com", "mail.example.com").
		Extend(ExtendOptions{CustomLength: 2})
	if err != nil {
		t.Fatalf("Extend() failed: %v", err)
	}
	g, err := NewGenerator(m, WithRand(testRand()), WithLevels(2), WithEpsilons(Epsilons{}))
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	for range 50 {
		name, err := g.Generate(Affixes{Prefix: "x-", Suffix: "example.com", CustomLength: 2})
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if !strings.HasPrefix(name, "x-") || !strings.HasSuffix(name, ".example.com") {
			t.Errorf("name %q is missing its affixes", name)
		}
		if got := strings.Count(name, "."); got != 2 {
			t.Errorf("name %q has %d separators, want 2", name, got)
		}
	}
}

func TestGenerateFromUntrainedCharacter(t *testing.T) {
	m := extendTestModel(t, "abc")
	// the only possible first character never started a transition
	m.first[0] = emptyDistribution[string]().withOthers([]string{"z"})
	if _, ok := m.Transitions(0, "z"); ok {
		t.Fatal("setup: z has a transition row")
	}

	g, err := NewGenerator(m, WithRand(testRand()), WithEpsilons(Epsilons{}), WithLevels(0))
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}
	alphabet := m.Alphabet()
	for range 20 {
		name, err := g.Generate(Affixes{})
		if err != nil {
			t.Fatalf("Generate() failed: %v", err)
		}
		if len(name) != 3 || name[0] != 'z' {
			t.Errorf("name %q, want three characters starting with z", name)
		}
		for _, r := range name {
			if !slices.Contains(alphabet, string(r)) {
				t.Errorf("name %q has %q outside the alphabet", name, r)
			}
		}
	}
}

func TestNewGeneratorLevels(t *testing.T) {
	m := extendTestModel(t, "a.com")

	testCases := []struct {
		name   string
		levels []int
		ok     bool
	}{
		{name: "Default order", levels: []int{0, 1, 2, 3}, ok: true},
		{name: "Reused level", levels: []int{0, 0}, ok: true},
		{name: "Negative level", levels: []int{-1}},
		{name: "Level out of range", levels: []int{4}},
		{name: "Too many levels", levels: []int{0, 1, 2, 3, 0}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGenerator(m, WithLevels(tc.levels...))
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("expected ErrInvalidLevel, got %v", err)
			}
		})
	}
}

func TestGenerateNUnderDelivers(t *testing.T) {
	// a single one-label name: every draw yields "ab"
	m, err := trainTestModel(t, "ab").Extend(ExtendOptions{})
	if err != nil {
		t.Fatalf("Extend() failed: %v", err)
	}
	g, err := NewGenerator(m, WithRand(testRand()), WithEpsilons(Epsilons{}))
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	names, stats, err := g.GenerateN(5, Affixes{}, mapFilter{})
	if err != nil {
		t.Fatalf("GenerateN() returned an error for under-delivery: %v", err)
	}
	if len(names) != 1 || names[0] != "ab" {
		t.Errorf("GenerateN() = %v, want [ab]", names)
	}
	if stats.Attempts != 25 || stats.Duplicates != 24 {
		t.Errorf("stats = %+v, want 25 attempts and 24 duplicates", stats)
	}
}

func TestGenerateNUnique(t *testing.T) {
	m := extendTestModel(t, createBenchmarkCorpus()...)
	g, err := NewGenerator(m, WithRand(testRand()))
	if err != nil {
		t.Fatalf("NewGenerator() failed: %v", err)
	}

	names, stats, err := g.GenerateN(200, Affixes{}, mapFilter{})
	if err != nil {
		t.Fatalf("GenerateN() failed: %v", err)
	}
	if len(names) != stats.Produced || stats.Attempts > 200*DefaultRetryFactor {
		t.Errorf("inconsistent stats %+v for %d names", stats, len(names))
	}
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			t.Errorf("duplicate name %q", name)
		}
		seen[name] = true
	}
}

func TestDrawUnique(t *testing.T) {
	draws := []struct {
		name string
		err  error
	}{
		{"a", nil},
		{"", &ModelExhaustedError{Table: TableFirst, Level: 0}},
		{"a", nil},
		{"", nil},
		{"b", nil},
	}
	var i int
	draw := func() (string, error) {
		d := draws[i%len(draws)]
		i++
		return d.name, d.err
	}

	var got []string
	stats, err := DrawUnique(2, 5, mapFilter{}, draw, func(name string) bool {
		got = append(got, name)
		return true
	})
	if err != nil {
		t.Fatalf("DrawUnique() failed: %v", err)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("accepted %v, want [a b]", got)
	}
	want := BatchStats{Requested: 2, Produced: 2, Attempts: 5, Exhausted: 1, Empty: 1, Duplicates: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	boom := errors.New("boom")
	_, err = DrawUnique(1, 5, nil, func() (string, error) { return "", boom }, func(string) bool { return true })
	if !errors.Is(err, boom) {
		t.Errorf("expected draw error to be returned, got %v", err)
	}
}

func BenchmarkGenerate(b *testing.B) {
	m, err := NewTrainer().TrainNames(b.Context(), createBenchmarkCorpus())
	if err != nil {
		b.Fatal(err)
	}
	ext, err := m.Extend(ExtendOptions{})
	if err != nil {
		b.Fatal(err)
	}
	g, err := NewGenerator(ext, WithSeed(1))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s, err := g.Generate(Affixes{})
		if err != nil && !errors.Is(err, ErrModelExhausted) {
			b.Fatalf("Generate() failed: %v", err)
		}
		b.SetBytes(int64(len(s)))
	}
}
