package crawl

import (
	"net/url"
	"strings"
)

// RegistrableDomain returns the last two DNS labels of host, lowercased
// and without port. Hosts with fewer labels are returned whole.
func RegistrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// InScope reports whether rawURL is an http(s) URL whose host is domain
// or a subdomain of it.
func InScope(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return host == domain || strings.HasSuffix(host, "."+domain)
}
