package functional

import (
	"context"
	"net/url"
	"time"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
)

// probeLinks attempts a bounded navigation for every same-origin,
// network-navigable anchor, restoring the page after each probe
// (spec.md §4.7). mailto:/tel:/javascript:/fragment-only anchors are
// skipped (spec.md §9's Open Question is resolved in DESIGN.md: skip
// those four schemes only, nothing else).
func probeLinks(ctx context.Context, page browser.Page, links []string, pageURL string) []BrokenLink {
	origin, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var broken []BrokenLink
	for _, href := range links {
		if anchorSkipSchemes.MatchString(href) {
			continue
		}
		u, err := url.Parse(href)
		if err != nil {
			continue
		}
		resolved := origin.ResolveReference(u)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		if resolved.Host != origin.Host {
			continue // external links skipped by default
		}

		navCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		nav, err := page.Navigate(navCtx, resolved.String(), browser.Viewport{Name: "probe", Width: 1280, Height: 800})
		cancel()

		if err != nil {
			broken = append(broken, BrokenLink{Href: href, Error: err.Error()})
		} else if nav.Status >= 400 {
			broken = append(broken, BrokenLink{Href: href, Status: nav.Status})
		}

		_ = page.GoBack(ctx)
	}
	return broken
}
