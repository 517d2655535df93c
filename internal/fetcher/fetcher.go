package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// Config holds fetcher configuration.
type Config struct {
	Timeout           time.Duration
	UserAgent         string
	PerDomainInterval time.Duration
	MaxBodyBytes      int64
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// HTTP fetches pages with a plain GET. It never retries; retry policy
// belongs to the caller.
type HTTP struct {
	client  *resty.Client
	limiter *DomainLimiter
	maxBody int64
	logger  *slog.Logger
}

// NewHTTP creates a new HTTP fetcher.
func NewHTTP(cfg Config, logger *slog.Logger) *HTTP {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	return &HTTP{
		client:  client,
		limiter: NewDomainLimiter(cfg.PerDomainInterval),
		maxBody: cfg.MaxBodyBytes,
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch returns the page body decoded to UTF-8.
func (f *HTTP) Fetch(ctx context.Context, rawURL string) (string, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return "", fmt.Errorf("wait for rate limit: %w", err)
	}

	res, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	body := res.RawBody()
	defer body.Close()

	if !res.IsSuccess() {
		return "", &StatusError{URL: rawURL, StatusCode: res.StatusCode()}
	}

	var r io.Reader = body
	if f.maxBody > 0 {
		r = io.LimitReader(body, f.maxBody)
	}

	decoded, err := charset.NewReader(r, res.Header().Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("detect charset: %w", err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	f.logger.Debug("fetched page", "url", rawURL, "status", res.StatusCode(), "bytes", len(data))

	return string(data), nil
}
