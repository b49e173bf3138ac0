// Package urlutil provides URL validation, canonicalization, and comparison
// helpers shared by the crawl scheduler and the per-URL pipeline.
package urlutil

import (
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// IsValid accepts only absolute http(s) URLs with a non-empty host.
func IsValid(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Canonical returns the scheme+host+path+normalized-query form of a URL with
// no fragment, so a URL is represented once by its canonical form.
// Query parameters are sorted so equivalent URLs with reordered params
// compare equal. Returns the input unchanged if it fails to parse.
func Canonical(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	u.ForceQuery = false
	u.Host = strings.ToLower(u.Host)
	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			for j, v := range q[k] {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = b.String()
	}
	return u.String()
}

// SameHost reports whether two URLs share the same host.
func SameHost(a, b string) bool {
	ua, err1 := url.Parse(a)
	ub, err2 := url.Parse(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.EqualFold(ua.Hostname(), ub.Hostname())
}

// RegisteredDomain returns the effective TLD+1 ("example.com" out of
// "sub.example.com") using the public suffix list, for host-family grouping
// (e.g. per-host rate limiting keyed on the registered domain rather than
// every subdomain separately). Returns the plain hostname on lookup failure.
func RegisteredDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// PathQuery returns the percent-decoded, lowercased concatenation of a URL's
// path and query, as consumed by the URL filter.
func PathQuery(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	decodedPath, err := url.PathUnescape(u.Path)
	if err != nil {
		decodedPath = u.Path
	}
	decodedQuery, err := url.QueryUnescape(u.RawQuery)
	if err != nil {
		decodedQuery = u.RawQuery
	}
	return strings.ToLower(decodedPath + "?" + decodedQuery), true
}

// Dedup returns urls in order with duplicates (by canonical form) removed,
// keeping the first occurrence as given. It does not filter by host or
// check that URLs are absolute. Used on the scheduler's seed lists.
func Dedup(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		c := Canonical(u)
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, u)
	}
	return out
}
