// Package dedup provides approximate membership filters used to suppress
// duplicate names during batch generation.
package dedup

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// DefaultFalsePositiveRate is the rate used when none is configured.
const DefaultFalsePositiveRate = 0.0001

// Bloom is a Bloom filter over strings. It may report a name as seen when it
// was not, never the reverse. It is safe for concurrent use.
type Bloom struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

// NewBloom returns a filter sized for n names at false-positive rate fp.
// Out-of-range values fall back to at least one name and
// DefaultFalsePositiveRate.
func NewBloom(n uint, fp float64) *Bloom {
	if n == 0 {
		n = 1
	}
	if fp <= 0 || fp >= 1 {
		fp = DefaultFalsePositiveRate
	}
	return &Bloom{filter: bloom.NewWithEstimates(n, fp)}
}

// Test reports whether name may have been added before.
func (b *Bloom) Test(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filter.TestString(name)
}

// Add records name.
func (b *Bloom) Add(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.AddString(name)
}
