// Package fetcher provides the shared HTTP client used for all provider
// traffic: bounded retries with exponential backoff and jitter, a longer
// backoff on rate-limit responses, per-host rate limiting, and a per-attempt
// timeout. Callers receive either a non-5xx response or an error after
// retries are exhausted.
package fetcher

import (
	"context"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/locator-cli/internal/resilience"
)

// Options configures the HTTP client.
type Options struct {
	UserAgent  string
	Timeout    time.Duration // per attempt
	MaxRetries int
	// RateLimits maps host to requests-per-second. Hosts not listed get
	// DefaultRPS.
	RateLimits map[string]float64
	// DefaultRPS is the fallback requests-per-second for unlisted hosts;
	// zero means DefaultRateLimit.
	DefaultRPS float64
}

// DefaultRateLimit applies to hosts without an explicit limit.
const DefaultRateLimit = 10.0

// Client issues GET requests with retry, backoff, and rate limiting.
type Client struct {
	http        *http.Client
	opts        Options
	limiters    map[string]*rate.Limiter
	fallback    *rate.Limiter
	baseBackoff time.Duration
}

// New creates a Client with pooled connections.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "locator-cli/1.0"
	}

	if opts.DefaultRPS == 0 {
		opts.DefaultRPS = DefaultRateLimit
	}

	limiters := make(map[string]*rate.Limiter, len(opts.RateLimits))
	for host, rps := range opts.RateLimits {
		limiters[host] = rate.NewLimiter(rate.Limit(rps), 1)
	}

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:        opts,
		limiters:    limiters,
		fallback:    rate.NewLimiter(rate.Limit(opts.DefaultRPS), 1),
		baseBackoff: time.Second,
	}
}

// Get fetches rawURL with retries. headers, when non-nil, is applied to every
// attempt. A non-2xx response that is not retryable (or that survives all
// retries on a retryable status) is returned as-is for the caller to inspect.
func (c *Client) Get(ctx context.Context, rawURL string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	log := zap.L().With(zap.String("component", "fetcher"), zap.String("url", rawURL))

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if err := c.limiterFor(rawURL).Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "fetcher: request canceled")
			}
			if !resilience.IsTransient(err) {
				return nil, eris.Wrap(err, "fetcher: request failed")
			}
			log.Warn("request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
			c.backoff(ctx, attempt, false)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = resilience.NewTransientError(
				eris.Errorf("fetcher: http 429 from %s", rawURL), resp.StatusCode)
			log.Warn("rate limited, backing off", zap.Int("attempt", attempt+1))
			c.backoff(ctx, attempt, true)
			continue
		}

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			_ = resp.Body.Close()
			lastErr = resilience.NewTransientError(
				eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL), resp.StatusCode)
			log.Warn("server error, retrying",
				zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt+1))
			c.backoff(ctx, attempt, false)
			continue
		}

		return resp, nil
	}

	return nil, eris.Wrap(lastErr, "fetcher: retries exhausted")
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return c.fallback
	}
	if lim, ok := c.limiters[u.Host]; ok {
		return lim
	}
	return c.fallback
}

// backoff sleeps exponentially with jitter. Rate-limit responses get double
// the usual delay so the provider has room to recover.
func (c *Client) backoff(ctx context.Context, attempt int, rateLimited bool) {
	maxBackoff := 30 * time.Second

	d := time.Duration(float64(c.baseBackoff) * math.Pow(2, float64(attempt)))
	if rateLimited {
		d *= 2
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
