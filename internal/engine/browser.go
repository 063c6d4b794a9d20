package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserProvider is the last-resort fallback: a headless Chrome renders
// a DuckDuckGo HTML search page and the result anchors are read from the
// live DOM. The capability is probed once at startup — if Chrome cannot
// be launched the variant stays permanently disabled instead of being
// retried per call.
type BrowserProvider struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
}

// NewBrowserProvider launches a headless Chrome and verifies it responds.
func NewBrowserProvider(timeout time.Duration) (*BrowserProvider, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 720),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	p := &BrowserProvider{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
	}

	// Startup probe: run an empty action against the fresh browser.
	// chromedp binds the CDP session to the context of the first Run,
	// so the probe must not use a timeout-derived context.
	startDone := make(chan error, 1)
	go func() { startDone <- chromedp.Run(browserCtx) }()
	select {
	case err := <-startDone:
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-time.After(timeout):
		p.Close()
		return nil, fmt.Errorf("start browser: timed out after %v", timeout)
	}

	slog.Info("headless browser fallback ready")
	return p, nil
}

func (p *BrowserProvider) Name() string { return ProviderBrowser }

func (p *BrowserProvider) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	metrics.BrowserRequests.Add(1)

	searchURL := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)

	tctx, cancel := context.WithTimeout(p.browserCtx, p.timeout)
	defer cancel()

	var rendered string
	err := chromedp.Run(tctx,
		chromedp.Navigate(searchURL),
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &rendered),
	)
	if err != nil {
		return nil, fmt.Errorf("browser render: %w", err)
	}

	results, err := parseDDGHTML([]byte(rendered))
	if err != nil {
		return nil, err
	}
	for i := range results {
		results[i].Source = ProviderBrowser
	}
	return capResults(results, maxResults), nil
}

// Close shuts the browser down. Safe to call after a failed start.
func (p *BrowserProvider) Close() {
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
}
