package fetcher

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter spaces out requests to the same host.
// A nil limiter or a zero interval never waits.
type DomainLimiter struct {
	mu       sync.Mutex
	every    time.Duration
	limiters map[string]*rate.Limiter
}

func NewDomainLimiter(every time.Duration) *DomainLimiter {
	return &DomainLimiter{
		every:    every,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.every <= 0 {
		return nil
	}
	return l.get(Domain(rawURL)).Wait(ctx)
}

func (l *DomainLimiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.every), 1)
		l.limiters[host] = lim
	}
	return lim
}

// Domain returns the lowercase host of rawURL without a leading "www.",
// or an empty string when rawURL cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
