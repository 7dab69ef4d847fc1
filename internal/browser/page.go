package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// rodPage implements Page over a single *rod.Page, recording console and
// network activity via CDP events for the lifetime of the page (grounded
// on domwatch/internal/observer.go's page.Context(ctx).EachEvent idiom).
type rodPage struct {
	page   *rod.Page
	logger *slog.Logger

	mu        sync.Mutex
	console   []ConsoleMessage
	reqs      []NetworkRequest
	resps     []NetworkResponse
	stopEvent func()
}

func (p *rodPage) startObserving() {
	stop := p.page.EachEvent(
		func(e *proto.RuntimeConsoleAPICalled) {
			p.mu.Lock()
			defer p.mu.Unlock()
			text := ""
			for _, arg := range e.Args {
				if arg.Value.Val() != nil {
					text += fmt.Sprintf("%v ", arg.Value.Val())
				}
			}
			p.console = append(p.console, ConsoleMessage{
				Type:      string(e.Type),
				Text:      text,
				Timestamp: time.Now().UTC(),
			})
		},
		func(e *proto.RuntimeExceptionThrown) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.console = append(p.console, ConsoleMessage{
				Type:      "error",
				Text:      e.ExceptionDetails.Text,
				Timestamp: time.Now().UTC(),
			})
		},
		func(e *proto.NetworkRequestWillBeSent) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.reqs = append(p.reqs, NetworkRequest{
				URL:       e.Request.URL,
				Method:    e.Request.Method,
				Timestamp: time.Now().UTC(),
			})
		},
		func(e *proto.NetworkResponseReceived) {
			p.mu.Lock()
			defer p.mu.Unlock()
			headers := map[string]string{}
			for k, v := range e.Response.Headers {
				headers[k] = v.String()
			}
			p.resps = append(p.resps, NetworkResponse{
				URL:        e.Response.URL,
				Status:     e.Response.Status,
				StatusText: e.Response.StatusText,
				Headers:    headers,
			})
		},
		func(e *proto.NetworkLoadingFailed) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.resps = append(p.resps, NetworkResponse{
				Failed: e.ErrorText,
			})
		},
	)
	go stop()
	p.stopEvent = func() {}
}

func (p *rodPage) Navigate(ctx context.Context, rawURL string, vp Viewport) (NavigateResult, error) {
	if err := p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  vp.Width,
		Height: vp.Height,
	}); err != nil {
		return NavigateResult{}, fmt.Errorf("browser: set viewport: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := p.page.Context(navCtx).Navigate(rawURL); err != nil {
		return NavigateResult{}, fmt.Errorf("browser: navigate %s: %w", rawURL, err)
	}
	if err := p.page.Context(navCtx).WaitLoad(); err != nil {
		p.logger.Warn("browser: wait load timeout", "url", rawURL, "error", err)
	}
	elapsed := time.Since(start)

	info, err := p.page.Info()
	status := 0
	finalURL := rawURL
	if err == nil {
		finalURL = info.URL
	}
	if nav := p.lastNavigationResponse(rawURL); nav != nil {
		status = nav.Status
	}

	return NavigateResult{
		FinalURL:   finalURL,
		Status:     status,
		LoadTimeMS: elapsed.Milliseconds(),
	}, nil
}

func (p *rodPage) lastNavigationResponse(rawURL string) *NetworkResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.resps) - 1; i >= 0; i-- {
		if p.resps[i].URL == rawURL {
			return &p.resps[i]
		}
	}
	return nil
}

func (p *rodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(true, nil)
}

func (p *rodPage) FullHTML(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get full HTML: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) VisibleText(ctx context.Context) (string, error) {
	res, err := p.page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", fmt.Errorf("browser: get visible text: %w", err)
	}
	return res.Value.Str(), nil
}

func (p *rodPage) ConsoleMessages() []ConsoleMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleMessage, len(p.console))
	copy(out, p.console)
	return out
}

func (p *rodPage) NetworkRequests() []NetworkRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkRequest, len(p.reqs))
	copy(out, p.reqs)
	return out
}

func (p *rodPage) NetworkResponses() []NetworkResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkResponse, len(p.resps))
	copy(out, p.resps)
	return out
}

func (p *rodPage) Eval(ctx context.Context, expr string) (string, error) {
	res, err := p.page.Context(ctx).Eval(expr)
	if err != nil {
		return "", fmt.Errorf("browser: eval: %w", err)
	}
	raw, err := json.Marshal(res.Value.Val())
	if err != nil {
		return "", fmt.Errorf("browser: marshal eval result: %w", err)
	}
	return string(raw), nil
}

func (p *rodPage) ClickAndWait(ctx context.Context, selector string, grace time.Duration) error {
	el, err := p.page.Context(ctx).Timeout(10 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find element %s: %w", selector, err)
	}
	beforeURL := p.page.MustInfo().URL
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: click %s: %w", selector, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	_ = p.page.Context(waitCtx).WaitStable(300 * time.Millisecond)

	afterURL := p.page.MustInfo().URL
	_ = beforeURL
	_ = afterURL
	return nil
}

func (p *rodPage) Fill(ctx context.Context, selector, value string) error {
	el, err := p.page.Context(ctx).Timeout(5 * time.Second).Element(selector)
	if err != nil {
		return fmt.Errorf("browser: find element %s: %w", selector, err)
	}
	return el.Input(value)
}

func (p *rodPage) GoBack(ctx context.Context) error {
	return p.page.Context(ctx).NavigateBack()
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
