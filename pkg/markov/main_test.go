package markov

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

const floatTolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// testRand returns a deterministic random source.
func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

// trainTestModel builds a model from names, failing the test on error.
func trainTestModel(t *testing.T, names ...string) *Model {
	t.Helper()
	m, err := NewTrainer().TrainNames(context.Background(), names)
	if err != nil {
		t.Fatalf("setup: TrainNames() failed: %v", err)
	}
	return m
}

// extendTestModel trains and extends a model with default options.
func extendTestModel(t *testing.T, names ...string) *Model {
	t.Helper()
	ext, err := trainTestModel(t, names...).Extend(ExtendOptions{})
	if err != nil {
		t.Fatalf("setup: Extend() failed: %v", err)
	}
	return ext
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a synthetic hostname corpus for benchmarking.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		rng := testRand()
		hosts := []string{"www", "mail", "ftp", "api", "dev", "vpn", "cdn", "smtp", "ns1", "ns2", "git", "shop"}
		domains := []string{"example", "acme", "contoso", "widgets", "northwind", "initech", "globex", "umbrella"}
		tlds := []string{"com", "net", "org", "io", "co.uk"}

		for range 5000 {
			var sb strings.Builder
			if rng.IntN(3) == 0 {
				fmt.Fprintf(&sb, "%s%d.", hosts[rng.IntN(len(hosts))], rng.IntN(100))
			}
			sb.WriteString(hosts[rng.IntN(len(hosts))])
			sb.WriteByte('.')
			sb.WriteString(domains[rng.IntN(len(domains))])
			sb.WriteByte('.')
			sb.WriteString(tlds[rng.IntN(len(tlds))])
			benchmarkCorpus = append(benchmarkCorpus, sb.String())
		}
	})
	return benchmarkCorpus
}
