package fetcher

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// maxErrorBody bounds how much of a failed response body is kept on a StatusError.
	maxErrorBody = 512
	// censusHost is the Census Data API host.
	censusHost = "api.census.gov"
	// fallbackRate applies to hosts without a configured limiter.
	fallbackRate = 20
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RateLimiters holds fixed per-host limiters keyed by host[:port]. A fixed
	// limiter replaces the adaptive default for its host.
	RateLimiters map[string]*rate.Limiter
}

// AdaptiveLimiter is a rate.Limiter that backs off on 429 and recovers on
// success. The rate moves between a quarter and twice the initial rate.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	floor   rate.Limit
	ceiling rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter creates an adaptive limiter starting at initial.
func NewAdaptiveLimiter(initial rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		floor:   initial / 4,
		ceiling: initial * 2,
		current: initial,
	}
}

// Wait blocks until the limiter allows a request.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess raises the rate by 20%.
func (a *AdaptiveLimiter) OnSuccess() {
	a.set(func(r rate.Limit) rate.Limit { return r * 1.2 })
}

// OnRateLimit halves the rate.
func (a *AdaptiveLimiter) OnRateLimit() {
	r := a.set(func(r rate.Limit) rate.Limit { return r * 0.5 })
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(r)),
	)
}

func (a *AdaptiveLimiter) set(next func(rate.Limit) rate.Limit) rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := min(max(next(a.current), a.floor), a.ceiling)
	a.current = r
	a.limiter.SetLimit(r)
	return r
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// HTTPFetcher implements Fetcher over net/http. Transport errors, 429 and
// 5xx responses are retried with jittered exponential backoff; every other
// status is returned to the caller on the first attempt.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters map[string]*rate.Limiter
	adaptive map[string]*AdaptiveLimiter
}

// DefaultAdaptiveLimiters returns the adaptive limiters for hosts known to
// answer 429 under load.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		censusHost: NewAdaptiveLimiter(10, 10),
	}
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "acs-loader/1.0"
	}
	limiters := make(map[string]*rate.Limiter, len(opts.RateLimiters))
	adaptive := DefaultAdaptiveLimiters()
	for host, lim := range opts.RateLimiters {
		limiters[host] = lim
		delete(adaptive, host)
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
		adaptive: adaptive,
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// adaptiveLimiterFor returns the adaptive limiter for the URL's host, if any.
func (f *HTTPFetcher) adaptiveLimiterFor(rawURL string) *AdaptiveLimiter {
	return f.adaptive[hostOf(rawURL)]
}

// limiterFor returns the fixed limiter for the URL's host, or a fresh
// fallback limiter.
func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	if lim, ok := f.limiters[hostOf(rawURL)]; ok {
		return lim
	}
	return rate.NewLimiter(fallbackRate, fallbackRate)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func (f *HTTPFetcher) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	adaptive := f.adaptiveLimiterFor(req.URL.String())
	var fixed *rate.Limiter
	if adaptive == nil {
		fixed = f.limiterFor(req.URL.String())
	}
	log := zap.L().With(zap.String("component", "fetcher"), zap.String("url", redactURL(req.URL)))

	var lastErr error
	var wait time.Duration
	for attempt := range f.opts.MaxRetries {
		if attempt > 0 {
			f.backoff(ctx, attempt-1, wait)
			wait = 0
		}

		var err error
		if adaptive != nil {
			err = adaptive.Wait(ctx)
		} else {
			err = fixed.Wait(ctx)
		}
		if err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			log.Warn("http request failed", zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		if !retryable(resp.StatusCode) {
			if adaptive != nil {
				adaptive.OnSuccess()
			}
			return resp, nil
		}

		_ = resp.Body.Close()
		lastErr = &StatusError{StatusCode: resp.StatusCode, URL: redactURL(req.URL)}
		if resp.StatusCode == http.StatusTooManyRequests {
			if adaptive != nil {
				adaptive.OnRateLimit()
			}
			wait = retryAfter(resp.Header.Get("Retry-After"))
		}
		log.Warn("retryable status",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
		)
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// backoff sleeps for 2^attempt seconds plus jitter, capped at 30s, or for
// floor when that is longer. It returns early when ctx is done.
func (f *HTTPFetcher) backoff(ctx context.Context, attempt int, floor time.Duration) {
	const maxBackoff = 30 * time.Second
	d := min(time.Duration(float64(time.Second)*math.Pow(2, float64(attempt))), maxBackoff)
	d += time.Duration(rand.Int64N(int64(d) / 2))
	d = max(d, min(floor, maxBackoff))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Download implements Fetcher.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.do(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close() //nolint:errcheck
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        redactURL(req.URL),
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	return resp.Body, nil
}

// redactURL masks the "key" query parameter so API keys never reach logs or errors.
func redactURL(u *url.URL) string {
	q := u.Query()
	if !q.Has("key") {
		return u.String()
	}
	q.Set("key", "REDACTED")
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}
