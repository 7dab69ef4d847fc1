package functional

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhav2411-dotcom/migrate-guard/internal/browser"
)

type scriptedPage struct {
	navResults map[string]browser.NavigateResult
	navErrs    map[string]error
	visited    []string
}

func (p *scriptedPage) Navigate(ctx context.Context, url string, vp browser.Viewport) (browser.NavigateResult, error) {
	p.visited = append(p.visited, url)
	if err, ok := p.navErrs[url]; ok {
		return browser.NavigateResult{}, err
	}
	return p.navResults[url], nil
}
func (p *scriptedPage) Screenshot(ctx context.Context) ([]byte, error)  { return nil, nil }
func (p *scriptedPage) FullHTML(ctx context.Context) (string, error)    { return "", nil }
func (p *scriptedPage) VisibleText(ctx context.Context) (string, error) { return "", nil }
func (p *scriptedPage) ConsoleMessages() []browser.ConsoleMessage       { return nil }
func (p *scriptedPage) NetworkRequests() []browser.NetworkRequest       { return nil }
func (p *scriptedPage) NetworkResponses() []browser.NetworkResponse     { return nil }
func (p *scriptedPage) Eval(ctx context.Context, expr string) (string, error) {
	return "[]", nil
}
func (p *scriptedPage) ClickAndWait(ctx context.Context, selector string, grace time.Duration) error {
	return nil
}
func (p *scriptedPage) Fill(ctx context.Context, selector, value string) error { return nil }
func (p *scriptedPage) GoBack(ctx context.Context) error                      { return nil }
func (p *scriptedPage) URL() string                                           { return "" }
func (p *scriptedPage) Close() error                                          { return nil }

func TestProbeLinksSkipsNonNavigableSchemes(t *testing.T) {
	page := &scriptedPage{navResults: map[string]browser.NavigateResult{}}
	links := []string{"mailto:hi@example.com", "tel:+15551234567", "javascript:void(0)", "#section"}

	broken := probeLinks(context.Background(), page, links, "https://example.com/")
	assert.Empty(t, broken)
	assert.Empty(t, page.visited, "skipped schemes must never reach Navigate")
}

func TestProbeLinksSkipsExternalLinks(t *testing.T) {
	page := &scriptedPage{navResults: map[string]browser.NavigateResult{}}
	broken := probeLinks(context.Background(), page, []string{"https://other.example.com/page"}, "https://example.com/")
	assert.Empty(t, broken)
	assert.Empty(t, page.visited)
}

func TestProbeLinksRecordsHTTPErrorStatus(t *testing.T) {
	page := &scriptedPage{navResults: map[string]browser.NavigateResult{
		"https://example.com/missing": {Status: 404},
	}}
	broken := probeLinks(context.Background(), page, []string{"/missing"}, "https://example.com/")
	require.Len(t, broken, 1)
	assert.Equal(t, 404, broken[0].Status)
}

func TestProbeLinksRecordsNavigationError(t *testing.T) {
	page := &scriptedPage{
		navResults: map[string]browser.NavigateResult{},
		navErrs:    map[string]error{"https://example.com/down": assertAnError{}},
	}
	broken := probeLinks(context.Background(), page, []string{"/down"}, "https://example.com/")
	require.Len(t, broken, 1)
	assert.NotEmpty(t, broken[0].Error)
}

func TestProbeLinksIgnoresHealthyLinks(t *testing.T) {
	page := &scriptedPage{navResults: map[string]browser.NavigateResult{
		"https://example.com/about": {Status: 200},
	}}
	broken := probeLinks(context.Background(), page, []string{"/about"}, "https://example.com/")
	assert.Empty(t, broken)
}

type assertAnError struct{}

func (assertAnError) Error() string { return "navigation failed" }
