package partition

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/CTAG07/hostgen/pkg/dedup"
	"github.com/CTAG07/hostgen/pkg/markov"
)

// lastTwo treats the two rightmost labels as the registrable suffix.
type lastTwo struct{}

func (lastTwo) RegistrableDomain(name string) (string, error) {
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return "", errors.New("too few labels")
	}
	return strings.Join(labels[len(labels)-2:], "."), nil
}

var testCorpus = []string{
	"www.example.com",
	"mail.example.com",
	"ftp.example.com",
	"dev.api.example.com",
	"shop.other.org",
	"localhost",
	"other.net",
}

func TestNewFrequencies(t *testing.T) {
	p, err := New(testCorpus, WithResolver(lastTwo{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if p.Usable() != 6 || p.Skipped() != 1 {
		t.Errorf("Usable/Skipped = %d/%d, want 6/1", p.Usable(), p.Skipped())
	}

	want := map[string]SuffixInfo{
		"example.com": {Suffix: "example.com", Names: 4, Frequency: 4.0 / 6, Eligible: true},
		"other.org":   {Suffix: "other.org", Names: 1, Frequency: 1.0 / 6},
		"other.net":   {Suffix: "other.net", Names: 1, Frequency: 1.0 / 6},
	}
	got := p.Suffixes()
	if len(got) != len(want) {
		t.Fatalf("Suffixes() = %+v, want %d entries", got, len(want))
	}
	var total float64
	for _, info := range got {
		if info != want[info.Suffix] {
			t.Errorf("suffix %s: got %+v, want %+v", info.Suffix, info, want[info.Suffix])
		}
		total += info.Frequency
	}
	if total < 0.999999 || total > 1.000001 {
		t.Errorf("suffix frequencies sum to %v, want 1", total)
	}
}

func TestNewNoEligible(t *testing.T) {
	_, err := New([]string{"a.example.com", "b.other.org", "c"}, WithResolver(lastTwo{}))
	if !errors.Is(err, ErrNoEligiblePartition) {
		t.Errorf("expected ErrNoEligiblePartition, got %v", err)
	}
}

func TestModelLazy(t *testing.T) {
	ctx := context.Background()
	p, err := New(testCorpus, WithResolver(lastTwo{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if p.built() != 0 {
		t.Fatalf("expected no models before first use, got %d", p.built())
	}

	m, err := p.Model(ctx, "example.com")
	if err != nil || m == nil {
		t.Fatalf("Model(example.com) = %v, %v", m, err)
	}
	if !m.Extended() {
		t.Error("partition model is not extended")
	}
	// trained on "www", "mail", "ftp" and "dev.api"
	if p, _ := m.Depth().Prob(1); p != 0.75 {
		t.Errorf("depth P(1) = %v, want 0.75", p)
	}

	again, _ := p.Model(ctx, "example.com")
	if again != m {
		t.Error("second Model() call rebuilt the partition")
	}

	if m, err := p.Model(ctx, "other.org"); err != nil || m != nil {
		t.Errorf("Model(other.org) = %v, %v, want nil model for an ineligible suffix", m, err)
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	p, err := New(testCorpus,
		WithResolver(lastTwo{}),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	names, stats, err := p.Generate(ctx, 20, markov.DefaultRetryFactor, dedup.NewBloom(100, 0.001))
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if len(names) == 0 || len(names) > 20 {
		t.Fatalf("Generate() returned %d names", len(names))
	}
	if stats.Attempts > 20*markov.DefaultRetryFactor {
		t.Errorf("spent %d attempts, budget is %d", stats.Attempts, 20*markov.DefaultRetryFactor)
	}

	seen := make(map[string]bool)
	for _, name := range names {
		// only example.com has enough names to be drawn
		if !strings.HasSuffix(name, ".example.com") {
			t.Errorf("name %q does not end in .example.com", name)
		}
		if strings.Contains(name, "..") || strings.HasPrefix(name, ".") {
			t.Errorf("name %q has an empty label", name)
		}
		if seen[name] {
			t.Errorf("duplicate name %q", name)
		}
		seen[name] = true
	}
}

func TestTrainAll(t *testing.T) {
	corpus := []string{
		"a1.one.com", "a2.one.com",
		"b1.two.com", "b2.two.com",
		"c1.three.com", "c2.three.com",
		"single.four.com",
	}
	p, err := New(corpus, WithResolver(lastTwo{}))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := p.TrainAll(context.Background(), 2); err != nil {
		t.Fatalf("TrainAll() failed: %v", err)
	}
	if got := p.built(); got != 3 {
		t.Errorf("TrainAll built %d partitions, want 3", got)
	}
}

func TestPublicSuffixResolver(t *testing.T) {
	testCases := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "www.example.com", want: "example.com"},
		{name: "a.b.example.co.uk", want: "example.co.uk"},
		{name: "com", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := PublicSuffixResolver{}.RegistrableDomain(tc.name)
			if tc.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %q", got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Errorf("RegistrableDomain(%q) = %q, %v, want %q", tc.name, got, err, tc.want)
			}
		})
	}
}
