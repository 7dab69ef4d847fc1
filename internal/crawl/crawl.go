package crawl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
	"github.com/vaibhav2411-dotcom/migrate-guard/internal/model"
)

// Engine runs the bounded BFS crawl of spec.md §4.4 against one site,
// using a BrowserDriver context for headless fetches.
type Engine struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewEngine constructs a crawl Engine. ratePerSecond paces headless
// fetches (crawl fetch pacing, SPEC_FULL.md §11); 0 disables pacing.
func NewEngine(ratePerSecond float64) *Engine {
	var lim *rate.Limiter
	if ratePerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return &Engine{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    lim,
	}
}

// Crawl discovers pages reachable from seedURL, subject to cfg, using
// bctx to fetch pages headlessly. Returns descriptors in discovery order.
func (e *Engine) Crawl(ctx context.Context, bctx browser.Context, seedURL string, cfg model.CrawlConfig) ([]model.PageDescriptor, error) {
	seed, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("crawl: parse seed %s: %w", seedURL, err)
	}

	normalizedSeed, err := NormalizeURL(seedURL, seed)
	if err != nil {
		return nil, err
	}

	type frontierEntry struct {
		url   string
		depth int
	}

	visited := map[string]bool{}
	queue := []frontierEntry{{url: normalizedSeed, depth: 0}}
	visited[normalizedSeed] = true

	for _, sm := range FetchSitemapSeeds(ctx, e.httpClient, seed) {
		norm, err := NormalizeURL(sm, seed)
		if err != nil || visited[norm] {
			continue
		}
		visited[norm] = true
		queue = append(queue, frontierEntry{url: norm, depth: 0})
	}

	var results []model.PageDescriptor

	for len(queue) > 0 && len(results) < cfg.MaxPages {
		entry := queue[0]
		queue = queue[1:]

		if entry.depth > cfg.MaxDepth {
			continue
		}
		u, err := url.Parse(entry.url)
		if err != nil {
			continue
		}
		if !Allowed(u.Path, cfg.IncludePatterns, cfg.ExcludePatterns) {
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return results, err
			}
		}

		desc, links, err := e.fetchOne(ctx, bctx, entry.url, entry.depth)
		if err != nil {
			continue // skip on fetch failure; not fatal to the crawl
		}
		if desc.Status >= 400 {
			continue
		}
		results = append(results, desc)

		for _, link := range links {
			lu, err := url.Parse(link)
			if err != nil {
				continue
			}
			if !cfg.FollowExternalLinks && !SameOrigin(lu, seed) {
				continue
			}
			norm, err := NormalizeURL(link, seed)
			if err != nil || visited[norm] {
				continue
			}
			visited[norm] = true
			queue = append(queue, frontierEntry{url: norm, depth: entry.depth + 1})
		}
	}

	return results, nil
}

func (e *Engine) fetchOne(ctx context.Context, bctx browser.Context, pageURL string, depth int) (model.PageDescriptor, []string, error) {
	page, err := bctx.OpenPage(ctx, true)
	if err != nil {
		return model.PageDescriptor{}, nil, err
	}
	defer page.Close()

	nav, err := page.Navigate(ctx, pageURL, browser.Viewport{Name: "crawl", Width: 1280, Height: 800})
	if err != nil {
		return model.PageDescriptor{}, nil, err
	}

	rawHTML, err := page.FullHTML(ctx)
	if err != nil {
		return model.PageDescriptor{}, nil, err
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return model.PageDescriptor{}, nil, err
	}
	meta := extractPageMeta(doc)

	u, _ := url.Parse(pageURL)
	links := resolveLinks(u, meta.Links)

	desc := model.PageDescriptor{
		URL:      nav.FinalURL,
		Path:     u.Path,
		Title:    meta.Title,
		Status:   nav.Status,
		Metadata: meta.Tags,
		Links:    links,
		Depth:    depth,
	}
	return desc, links, nil
}
