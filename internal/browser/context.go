package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// rodContext implements Context over one incognito *rod.Browser, which
// gives each site (baseline/candidate) its own cookie jar/storage while
// sharing the underlying Chrome process.
type rodContext struct {
	browser *rod.Browser
	cfg     Config

	mu    sync.Mutex
	pages []*rod.Page
}

func (c *rodContext) OpenPage(ctx context.Context, blockResources bool) (Page, error) {
	page, err := stealth.Page(c.browser)
	if err != nil {
		return nil, fmt.Errorf("browser: open page: %w", err)
	}

	if blockResources && len(c.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, c.cfg.ResourceBlocking); err != nil {
			c.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	p := &rodPage{page: page, logger: c.cfg.Logger}
	p.startObserving()

	c.mu.Lock()
	c.pages = append(c.pages, page)
	c.mu.Unlock()

	return p, nil
}

func (c *rodContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pages {
		p.Close()
	}
	return c.browser.Close()
}

func applyResourceBlocking(page *rod.Page, blocked []string) error {
	blockSet := make(map[string]bool, len(blocked))
	for _, t := range blocked {
		blockSet[t] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		typ := string(h.Request.Type())
		if blockSet[resourceTypeKey(typ)] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

func resourceTypeKey(cdpType string) string {
	switch cdpType {
	case "Image":
		return "image"
	case "Font":
		return "font"
	case "Media":
		return "media"
	case "Stylesheet":
		return "stylesheet"
	default:
		return ""
	}
}
