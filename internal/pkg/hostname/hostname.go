// Package hostname classifies inbound Host headers into tenant labels.
package hostname

import "strings"

var loopback = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
}

// clean lowercases the host, strips a trailing port and a trailing dot.
func clean(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return strings.TrimSuffix(host, ".")
}

// ExtractSubdomain returns the tenant label for the given host, or "" when the
// request targets the primary site. The label is everything before the base
// domain, unsplit: "a.b.x-link.ir" yields "a.b". A host exactly equal to the
// base domain is never a tenant. The ".localhost" suffix is a development
// affordance. The label is not re-validated here; format was enforced at
// assignment time.
func ExtractSubdomain(host, baseDomain string) string {
	// Bracketed IPv6 literals can never address a tenant.
	if strings.HasPrefix(strings.TrimSpace(host), "[") {
		return ""
	}
	host = clean(host)
	baseDomain = clean(baseDomain)

	if host == "" {
		return ""
	}
	if _, ok := loopback[host]; ok {
		return ""
	}
	if strings.HasSuffix(host, ".localhost") {
		return strings.TrimSuffix(host, ".localhost")
	}
	if baseDomain == "" || host == baseDomain {
		return ""
	}
	if strings.HasSuffix(host, "."+baseDomain) {
		return host[:len(host)-len(baseDomain)-1]
	}
	return ""
}
