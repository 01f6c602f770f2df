package partition

import (
	"golang.org/x/net/publicsuffix"
)

// SuffixResolver maps a name to the registrable suffix it belongs to, for
// example "www.example.co.uk" to "example.co.uk".
type SuffixResolver interface {
	RegistrableDomain(name string) (string, error)
}

// PublicSuffixResolver resolves suffixes with the public suffix list
// compiled into golang.org/x/net/publicsuffix.
type PublicSuffixResolver struct{}

// RegistrableDomain returns the effective TLD plus one label.
func (PublicSuffixResolver) RegistrableDomain(name string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(name)
}
