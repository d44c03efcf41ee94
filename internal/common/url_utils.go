package common

import (
	"net/url"
	"strings"
)

// SameOrigin reports whether two URLs share scheme and host.
// Used to restrict link following to the source page's site.
func SameOrigin(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Scheme == ub.Scheme && strings.EqualFold(ua.Host, ub.Host)
}

// ResolveURL resolves a potentially relative href against a base URL.
// Returns "" if the href cannot be resolved to an absolute URL.
func ResolveURL(href string, base *url.URL) string {
	if base == nil {
		if parsed, err := url.Parse(href); err == nil && parsed.IsAbs() {
			return parsed.String()
		}
		return ""
	}

	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

// NormalizeURL strips the fragment from a URL so that anchor variants of
// the same page deduplicate to one entry.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.Fragment = ""
	return parsed.String()
}
