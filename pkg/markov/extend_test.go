package markov

import (
	"errors"
	"slices"
	"testing"
)

func TestExtendOthers(t *testing.T) {
	m := trainTestModel(t, "ab.com", "abcd.net")
	ext, err := m.Extend(ExtendOptions{})
	if err != nil {
		t.Fatalf("Extend() failed: %v", err)
	}
	if m.Extended() || !ext.Extended() {
		t.Error("Extend() modified the receiver or did not mark the copy")
	}

	alphabet := ext.Alphabet()
	for level := range 2 {
		first := ext.FirstChars(level)
		if got := first.Len() + len(first.Others()); got != len(alphabet) {
			t.Errorf("level %d: observed+others = %d, want %d", level, got, len(alphabet))
		}
		for _, from := range ext.TransitionSources(level) {
			row, _ := ext.Transitions(level, from)
			for _, c := range row.Others() {
				if _, ok := row.Prob(c); ok {
					t.Errorf("level %d row %q: %q is both observed and in Others", level, from, c)
				}
			}
			if got := row.Len() + len(row.Others()); got != len(alphabet) {
				t.Errorf("level %d row %q covers %d symbols, want %d", level, from, got, len(alphabet))
			}
		}
	}

	// level 1 lengths were 2 and 4: Others must be exactly {3}
	lengths := ext.WordLength(1)
	if !slices.Equal(lengths.Others(), []int{3}) {
		t.Errorf("level 1 length Others = %v, want [3]", lengths.Others())
	}
	if len(m.WordLength(1).Others()) != 0 {
		t.Error("Extend() mutated the source distribution")
	}
}

func TestExtendLengthCoverage(t *testing.T) {
	m := trainTestModel(t, "a.bbb.com", "aaaaa.com")
	ext, err := m.Extend(ExtendOptions{
		MinWordLength: [MaxLevels]int{0, 0, 1, 0},
		MaxWordLength: [MaxLevels]int{0, 8, 0, 0},
	})
	if err != nil {
		t.Fatalf("Extend() failed: %v", err)
	}

	testCases := []struct {
		level    int
		min, max int
	}{
		{level: 0, min: 3, max: 3},
		{level: 1, min: 3, max: 8},
		{level: 2, min: 1, max: 1},
	}
	for _, tc := range testCases {
		d := ext.WordLength(tc.level)
		var all []int
		for _, e := range d.Entries() {
			all = append(all, e.Symbol)
		}
		all = append(all, d.Others()...)
		slices.Sort(all)

		var want []int
		for l := tc.min; l <= tc.max; l++ {
			want = append(want, l)
		}
		if !slices.Equal(all, want) {
			t.Errorf("level %d lengths = %v, want %v", tc.level, all, want)
		}
		if b := ext.Bounds(tc.level); b.Min != tc.min || b.Max != tc.max {
			t.Errorf("level %d bounds = %+v, want [%d, %d]", tc.level, b, tc.min, tc.max)
		}
	}
}

func TestExtendDepthWindow(t *testing.T) {
	// depths: 1 x1, 2 x1, 3 x2
	m := trainTestModel(t, "a", "a.b", "a.b.c", "x.y.z")

	testCases := []struct {
		name    string
		opts    ExtendOptions
		want    map[int]float64
		wantErr error
	}{
		{
			name: "Full window",
			opts: ExtendOptions{},
			want: map[int]float64{1: 0.25, 2: 0.25, 3: 0.5},
		},
		{
			name: "Custom prefix shifts window",
			opts: ExtendOptions{CustomLength: 1},
			want: map[int]float64{2: 1.0 / 3, 3: 2.0 / 3},
		},
		{
			name: "Fewer levels",
			opts: ExtendOptions{NumLevels: 2},
			want: map[int]float64{1: 0.5, 2: 0.5},
		},
		{
			name:    "Empty window",
			opts:    ExtendOptions{CustomLength: 3},
			wantErr: ErrEmptyDepthWindow,
		},
		{
			name:    "Too many levels",
			opts:    ExtendOptions{NumLevels: 5},
			wantErr: ErrInvalidLevel,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ext, err := m.Extend(tc.opts)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Extend() failed: %v", err)
			}
			if ext.Depth().Len() != len(tc.want) {
				t.Errorf("depth has %d entries, want %d", ext.Depth().Len(), len(tc.want))
			}
			for depth, want := range tc.want {
				if p, _ := ext.Depth().Prob(depth); !approxEqual(p, want) {
					t.Errorf("P(depth=%d) = %v, want %v", depth, p, want)
				}
			}
			if sum := ext.Depth().Sum(); !approxEqual(sum, 1) {
				t.Errorf("depth window sums to %v, want 1", sum)
			}
		})
	}
}
