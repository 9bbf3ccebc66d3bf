package scope

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain returns the lowercased registrable domain of rawURL.
// For "https://www.tatacliq.com/x" it returns "tatacliq.com".
//
// IP literals and single-label hosts such as "localhost" are returned as-is,
// since they have no public suffix. An empty string is returned when the URL
// cannot be parsed or has no host.
func RegistrableDomain(rawURL string) string {
	host := hostname(rawURL)
	if host == "" {
		return ""
	}

	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// The host is itself a public suffix (e.g. "co.uk") or otherwise
		// not registrable.
		return ""
	}
	return domain
}

// SiteKey returns the registrable domain of rawURL without its public suffix.
// "https://www.nykaafashion.com" yields "nykaafashion" and
// "https://shop.example.co.uk" yields "example".
func SiteKey(rawURL string) string {
	domain := RegistrableDomain(rawURL)
	if domain == "" {
		return ""
	}
	if net.ParseIP(domain) != nil || !strings.Contains(domain, ".") {
		return domain
	}

	suffix, _ := publicsuffix.PublicSuffix(domain)
	key := strings.TrimSuffix(domain, "."+suffix)
	if key == "" {
		return domain
	}
	return key
}

// InScope reports whether rawURL belongs to the scope domain.
// A link without a registrable domain is never in scope.
func InScope(scopeDomain, rawURL string) bool {
	if scopeDomain == "" {
		return false
	}
	domain := RegistrableDomain(rawURL)
	return domain != "" && domain == scopeDomain
}

// hostname extracts the lowercased host (without port) from rawURL.
func hostname(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}
