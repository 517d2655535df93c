package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// Browser renders the page in headless Chrome before returning its HTML,
// for shops that only fill in prices from JavaScript.
type Browser struct {
	opts    []chromedp.ExecAllocatorOption
	timeout time.Duration
	limiter *DomainLimiter
	logger  *slog.Logger
}

func NewBrowser(cfg Config, logger *slog.Logger) *Browser {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(1280, 900),
	)

	return &Browser{
		opts:    opts,
		timeout: cfg.Timeout,
		limiter: NewDomainLimiter(cfg.PerDomainInterval),
		logger:  logger.With("component", "browser_fetcher"),
	}
}

func (b *Browser) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := b.limiter.Wait(ctx, rawURL); err != nil {
		return "", fmt.Errorf("wait for rate limit: %w", err)
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	tabCtx, cancel := context.WithTimeout(tabCtx, b.timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(rawURL))
	if err != nil {
		return "", fmt.Errorf("navigate: %w", err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status > 299) {
		return "", &StatusError{URL: rawURL, StatusCode: int(resp.Status)}
	}

	var html string
	err = chromedp.Run(tabCtx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("read rendered html: %w", err)
	}

	b.logger.Debug("rendered page", "url", rawURL, "bytes", len(html))

	return html, nil
}
