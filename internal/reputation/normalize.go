package reputation

import (
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// domainRE accepts dot-separated labels of 1-63 characters ending in an
// alphabetic top label of 2-6 characters, with an optional trailing dot.
var domainRE = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,6}\.?$`)

// Normalizer turns URLs and host names into canonical cache keys.
type Normalizer struct {
	// RegistrableOnly collapses sub-domains to their registrable domain (eTLD+1).
	RegistrableOnly bool
}

// Normalize canonicalises input with the default Normalizer.
func Normalize(input string) (string, error) {
	return Normalizer{}.Normalize(input)
}

// Normalize strips the scheme and path from input, lower-cases it and validates
// the result. The output is stable under repeated normalisation.
func (n Normalizer) Normalize(input string) (string, error) {
	host := strings.TrimSpace(input)

	lower := strings.ToLower(host)
	switch {
	case strings.HasPrefix(lower, "http://"):
		host = host[len("http://"):]
	case strings.HasPrefix(lower, "https://"):
		host = host[len("https://"):]
	}

	if i := strings.IndexByte(host, '/'); i >= 0 {
		host = host[:i]
	}
	host = strings.ToLower(host)

	if !domainRE.MatchString(host) {
		return "", &InvalidDomainError{Input: input}
	}
	host = strings.TrimSuffix(host, ".")

	if n.RegistrableOnly {
		// A bare public suffix has no eTLD+1; keep it as-is.
		if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			host = registrable
		}
	}
	return host, nil
}
