package markov

import (
	"cmp"
	"math/rand/v2"
)

// Sample draws a symbol from d.
//
// A uniform r in [0,1) is compared against a running total built by walking
// the observed entries in order and adding each probability minus eps/n,
// where n is the number of observed entries. The first entry whose running
// total exceeds r wins. When no entry wins the draw falls back to a uniform
// choice from the Others bucket; if Others is empty ErrModelExhausted is
// returned. eps is ignored for distributions with an empty Others bucket,
// since there is nothing to extend into.
func Sample[K cmp.Ordered](rng *rand.Rand, d *Distribution[K], eps float64) (K, error) {
	others := d.Others()
	if len(others) == 0 {
		eps = 0
	}

	r := rng.Float64()
	n := float64(d.Len())
	var total float64
	for _, e := range d.Entries() {
		total += e.Prob - eps/n
		if r < total {
			return e.Symbol, nil
		}
	}

	if len(others) == 0 {
		var zero K
		return zero, ErrModelExhausted
	}
	return others[rng.IntN(len(others))], nil
}

// Score returns the smoothed probability of v under d. An observed symbol
// scores its probability minus eps/n; anything else scores eps divided by
// the size of the full generation alphabet, whatever the size of d.
func Score[K cmp.Ordered](d *Distribution[K], eps float64, v K, alphabetSize int) float64 {
	if p, ok := d.Prob(v); ok {
		return p - eps/float64(d.Len())
	}
	return eps / float64(alphabetSize)
}
