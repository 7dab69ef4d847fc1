// Package browser implements the BrowserDriver capability spec.md §1
// names as an external collaborator: navigate, screenshot, snapshot DOM,
// observe console/network. The concrete implementation is go-rod/stealth,
// grounded on domwatch/internal/browser's manager+tab lifecycle code.
package browser

import (
	"context"
	"time"
)

// Viewport is a capture viewport (spec.md §4.5 desktop/tablet/mobile set).
type Viewport struct {
	Name   string
	Width  int
	Height int
}

// DefaultViewports returns the spec-mandated fixed set.
func DefaultViewports() []Viewport {
	return []Viewport{
		{Name: "desktop", Width: 1920, Height: 1080},
		{Name: "tablet", Width: 768, Height: 1024},
		{Name: "mobile", Width: 375, Height: 667},
	}
}

// ConsoleMessage is one captured console entry (spec.md §4.5/§4.7).
type ConsoleMessage struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`
	Column    int       `json:"column,omitempty"`
	Stack     string    `json:"stack,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkRequest is one observed outbound request (spec.md §4.5).
type NetworkRequest struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkResponse is one observed response, or a failure (spec.md §4.5).
type NetworkResponse struct {
	URL        string            `json:"url"`
	Status     int               `json:"status,omitempty"`
	StatusText string            `json:"statusText,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Failed     string            `json:"failed,omitempty"`
}

// NavigateResult carries the navigation metadata spec.md §4.5/§4.7 require.
type NavigateResult struct {
	FinalURL     string
	Status       int
	LoadTimeMS   int64
	RedirectURLs []string
}

// Page is a single navigable browser tab, scoped to one viewport. Stages
// must Close every Page they open (spec.md §5).
type Page interface {
	Navigate(ctx context.Context, url string, vp Viewport) (NavigateResult, error)
	Screenshot(ctx context.Context) ([]byte, error)
	FullHTML(ctx context.Context) (string, error)
	VisibleText(ctx context.Context) (string, error)
	ConsoleMessages() []ConsoleMessage
	NetworkRequests() []NetworkRequest
	NetworkResponses() []NetworkResponse
	// Eval runs a JS expression and returns its JSON-encoded result.
	Eval(ctx context.Context, expr string) (string, error)
	// ClickAndWait clicks the element matched by selector, then waits up
	// to grace for either a response or a URL change.
	ClickAndWait(ctx context.Context, selector string, grace time.Duration) error
	// Fill sets an input/select/textarea's value.
	Fill(ctx context.Context, selector, value string) error
	// GoBack restores the page after a probe navigation (spec.md §4.7).
	GoBack(ctx context.Context) error
	URL() string
	Close() error
}

// Context is one BrowserDriver context — an isolated browsing session for
// one site (baseline or candidate) shared read-write across the Visual,
// Functional, and Data stages once Capture completes (spec.md §4.3, §5).
// Each stage opens its own Page from the shared Context and must close it;
// the orchestrator closes the Context itself once, when the middle stage
// block ends.
type Context interface {
	OpenPage(ctx context.Context, blockResources bool) (Page, error)
	Close() error
}

// Driver is the BrowserDriver capability: it owns the underlying browser
// process and mints per-site Contexts.
type Driver interface {
	Start(ctx context.Context) error
	NewContext(ctx context.Context) (Context, error)
	Stop() error
}
