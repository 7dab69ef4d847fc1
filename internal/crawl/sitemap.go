package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxSitemapIndexDepth bounds recursion into nested <sitemapindex>
// documents (SUPPLEMENTED FEATURES, SPEC_FULL.md §12); spec.md §4.4 only
// requires following sitemap.xml, but a thorough crawler follows nested
// indexes too, capped to avoid an unbounded/malicious sitemap chain.
const maxSitemapIndexDepth = 3

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

// FetchSitemapSeeds fetches sitemap.xml at seed's origin and returns every
// listed URL, recursing into sitemap indexes to maxSitemapIndexDepth. A
// missing or unparseable sitemap yields no seeds, not an error — sitemap
// discovery is best-effort supplementary seeding.
func FetchSitemapSeeds(ctx context.Context, client *http.Client, seed *url.URL) []string {
	sitemapURL := seed.ResolveReference(&url.URL{Path: "/sitemap.xml"})
	return fetchSitemapRecursive(ctx, client, sitemapURL.String(), 0)
}

func fetchSitemapRecursive(ctx context.Context, client *http.Client, loc string, depth int) []string {
	if depth > maxSitemapIndexDepth {
		return nil
	}

	body, err := fetchBody(ctx, client, loc)
	if err != nil {
		return nil
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err == nil && len(set.URLs) > 0 {
		out := make([]string, 0, len(set.URLs))
		for _, u := range set.URLs {
			if u.Loc != "" {
				out = append(out, u.Loc)
			}
		}
		return out
	}

	var idx sitemapIndex
	if err := xml.Unmarshal(body, &idx); err == nil && len(idx.Sitemaps) > 0 {
		var out []string
		for _, s := range idx.Sitemaps {
			if s.Loc == "" {
				continue
			}
			out = append(out, fetchSitemapRecursive(ctx, client, s.Loc, depth+1)...)
		}
		return out
	}

	return nil
}

func fetchBody(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("crawl: sitemap fetch %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}
