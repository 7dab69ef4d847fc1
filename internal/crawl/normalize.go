// Package crawl implements the bounded BFS crawl and page-matching
// algorithm of spec.md §4.4, grounded on domwatch's fetch/navigate idioms
// and path-matching conventions borrowed from horosafe's SafePath allow/
// deny style checks.
package crawl

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeURL applies spec.md §4.4 step 1: lowercase host, drop fragment,
// drop query, collapse trailing slash, resolve against the seed origin.
func NormalizeURL(raw string, seed *url.URL) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	resolved := seed.ResolveReference(u)
	resolved.Fragment = ""
	resolved.RawQuery = ""
	resolved.Host = strings.ToLower(resolved.Host)

	p := resolved.Path
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		p = "/"
	}
	resolved.Path = p

	return resolved.String(), nil
}

// SameOrigin reports whether candidate shares scheme+host with seed.
func SameOrigin(candidate *url.URL, seed *url.URL) bool {
	return strings.EqualFold(candidate.Scheme, seed.Scheme) &&
		strings.EqualFold(candidate.Host, seed.Host)
}

// MatchPattern reports whether urlPath matches a glob-style pattern where
// `*` matches any path-segment substring (spec.md §4.4 CrawlConfig
// semantics).
func MatchPattern(pattern, urlPath string) bool {
	matched, err := path.Match(pattern, urlPath)
	if err == nil && matched {
		return true
	}
	// path.Match's `*` does not cross `/`; the spec wants substring-style
	// matching within a segment or across the whole path depending on the
	// pattern's own slashes, so fall back to a simple glob-to-substring
	// check for patterns without embedded slashes.
	if !strings.Contains(pattern, "/") {
		return globSubstringMatch(pattern, urlPath)
	}
	return false
}

func globSubstringMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	pos := 0
	for i, part := range parts {
		if part == "" {
			continue
		}
		idx := strings.Index(s[pos:], part)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 && !strings.HasPrefix(pattern, "*") {
			return false
		}
		pos += idx + len(part)
	}
	if !strings.HasSuffix(pattern, "*") && len(parts) > 0 {
		return strings.HasSuffix(s, parts[len(parts)-1]) || parts[len(parts)-1] == ""
	}
	return true
}

// Allowed applies include/exclude pattern semantics: exclude always wins;
// include, when non-empty, is an allow-list.
func Allowed(urlPath string, include, exclude []string) bool {
	for _, pat := range exclude {
		if MatchPattern(pat, urlPath) {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pat := range include {
		if MatchPattern(pat, urlPath) {
			return true
		}
	}
	return false
}
