// Package fetchclient is a reference collab.Fetcher backed by resty, with
// exponential-backoff retry and a per-host circuit breaker, grounded on the
// go_job's fetch_http.go (fetchWithRetry/newFetchClient) and retry.go
// (isRetryable/isRetryableStatus) — reworked from a package-level client and
// retry loop into an injectable, per-host breaker-guarded collaborator.
package fetchclient

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_crawler/internal/collab"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
)

// ErrNotFetchable is returned for non-HTML content types and permanent
// transport failures, matching the Fetcher contract's "return none" case.
var ErrNotFetchable = errors.New("fetchclient: not fetchable")

const (
	maxRedirects = 10
	// maxTrackedHosts bounds the per-host breaker cache so a crawl touching
	// many distinct hosts can't grow this state unboundedly; eviction drops
	// the least-recently-used host's breaker, matching go_job's cache.go
	// evictIfNeeded sizing concern.
	maxTrackedHosts = 2048
)

// Client is a resty-backed Fetcher with one circuit breaker per host, held
// in an LRU cache bounded to maxTrackedHosts.
type Client struct {
	http *resty.Client

	mu       sync.Mutex
	breakers *lru.Cache[string, *gobreaker.CircuitBreaker[*resty.Response]]
}

// New returns a Client with sane defaults for web crawling: a bounded
// redirect chain, gzip transport handling (resty does this natively), and
// no retry baked into the transport — retry is layered in Get via backoff.
func New() *Client {
	httpClient := resty.New().
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)).
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	breakers, err := lru.New[string, *gobreaker.CircuitBreaker[*resty.Response]](maxTrackedHosts)
	if err != nil {
		// Only returns an error for a non-positive size, which maxTrackedHosts never is.
		panic(err)
	}

	return &Client{
		http:     httpClient,
		breakers: breakers,
	}
}

// Get implements collab.Fetcher: GET url with retry and a per-host circuit
// breaker, decoding the body as text. Non-HTML content types and permanent
// failures return ErrNotFetchable, never a panic.
func (c *Client) Get(ctx context.Context, url string, timeout time.Duration) (collab.FetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	breaker := c.breakerFor(url)

	operation := func() (*resty.Response, error) {
		resp, err := breaker.Execute(func() (*resty.Response, error) {
			r, err := c.http.R().
				SetContext(reqCtx).
				SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
				Get(url)
			if err != nil {
				return nil, err
			}
			if isRetryableStatus(r.StatusCode()) {
				return nil, fmt.Errorf("fetchclient: status %d", r.StatusCode())
			}
			if r.StatusCode() != http.StatusOK {
				return nil, backoff.Permanent(fmt.Errorf("fetchclient: status %d", r.StatusCode()))
			}
			return r, nil
		})
		if err != nil && errors.Is(err, gobreaker.ErrOpenState) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	resp, err := backoff.Retry(reqCtx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3))
	if err != nil {
		return collab.FetchResult{}, fmt.Errorf("%w: %w", ErrNotFetchable, err)
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType != "" && !isHTMLContentType(contentType) {
		return collab.FetchResult{}, ErrNotFetchable
	}

	return collab.FetchResult{
		Body:     string(resp.Body()),
		FinalURL: resp.Request.URL,
	}, nil
}

func (c *Client) breakerFor(rawURL string) *gobreaker.CircuitBreaker[*resty.Response] {
	host := hostOf(rawURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers.Get(host); ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	c.breakers.Add(host, b)
	return b
}

func hostOf(rawURL string) string {
	if i := strings.Index(rawURL, "://"); i >= 0 {
		rest := rawURL[i+3:]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			return rest[:j]
		}
		return rest
	}
	return rawURL
}

func isRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}

func isHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(contentType, "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
