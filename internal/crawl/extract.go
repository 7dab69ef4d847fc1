package crawl

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// pageMeta is what extract pulls out of one fetched page's HTML.
type pageMeta struct {
	Title    string
	Tags     map[string]string
	Links    []string
}

// metaTagNames is the bounded metadata tag set spec.md §4.4 names.
var metaTagNames = map[string]string{
	"description":     "description",
	"keywords":        "keywords",
	"og:title":        "og:title",
	"og:description":  "og:description",
}

// extractPageMeta walks the parsed document once for title, the bounded
// metadata tag set, and every anchor href — grounded on docpipe/html.go's
// node-walk idiom.
func extractPageMeta(doc *html.Node) pageMeta {
	meta := pageMeta{Tags: map[string]string{}}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Title:
				if n.FirstChild != nil && meta.Title == "" {
					meta.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case atom.Meta:
				name, content := "", ""
				for _, a := range n.Attr {
					switch strings.ToLower(a.Key) {
					case "name", "property":
						name = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if key, ok := metaTagNames[name]; ok {
					meta.Tags[key] = content
				}
			case atom.A:
				for _, a := range n.Attr {
					if a.Key == "href" && a.Val != "" {
						meta.Links = append(meta.Links, a.Val)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return meta
}

// resolveLinks turns raw href strings into absolute URLs against base,
// dropping unparseable or non-http(s) hrefs.
func resolveLinks(base *url.URL, raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		u, err := url.Parse(r)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(u)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		out = append(out, resolved.String())
	}
	return out
}
