package reportapi

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/config"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/metrics"
	"github.com/AchimGrolimund/CSP-Scout-UI/pkg/ratelimit"
)

// Client issues GET requests against the reporting endpoint. Every single
// attempt consults the rate limiter first; a denied attempt never reaches
// the network. The client id is a locally generated token with no
// cross-process meaning.
type Client struct {
	BaseURL     string
	HTTPClient  *http.Client
	Origin      string
	ClientID    string
	Limiter     ratelimit.Limiter
	MaxRequests int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	Metrics     *metrics.Registry
}

func NewClient(cfg config.Config, limiter ratelimit.Limiter, reg *metrics.Registry) *Client {
	// Cookie jar so cross-origin session cookies set by the reporting
	// endpoint are carried on subsequent requests.
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		HTTPClient:  &http.Client{Jar: jar},
		Origin:      cfg.Origin,
		ClientID:    uuid.NewString(),
		Limiter:     limiter,
		MaxRequests: cfg.RateLimitMaxRequests,
		Timeout:     cfg.ReportTimeout,
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		Metrics:     reg,
	}
}

// Get performs exactly one attempt: limiter check, timed request, content
// type validation, status validation.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	url := c.BaseURL + path
	if c.Limiter != nil {
		decision := c.Limiter.Allow(c.ClientID, c.MaxRequests)
		if !decision.Allowed {
			c.inc(metrics.CounterRateLimited)
			return nil, &RateLimitError{ClientID: c.ClientID, RetryAfter: time.Until(decision.ResetAt)}
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if c.Origin != "" {
		req.Header.Set("Origin", c.Origin)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	// Wrong shape is a failure regardless of status code.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, &ContentTypeError{URL: url, ContentType: contentType}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	return body, nil
}

// FetchWithRetry runs up to MaxRetries+1 sequential attempts with a fixed
// delay between them. Each attempt re-runs the full Get path, so retries
// consume rate-limit slots too: sustained throttling can exhaust the retry
// budget without a single network call.
func (c *Client) FetchWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	attempts := c.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		body, err := c.Get(ctx, path)
		if err == nil {
			c.inc(metrics.CounterFetchSuccess)
			return body, nil
		}
		lastErr = err
		if attempt < attempts-1 {
			c.inc(metrics.CounterFetchRetries)
			select {
			case <-ctx.Done():
				c.inc(metrics.CounterFetchErrors)
				return nil, &NetworkError{URL: c.BaseURL + path, Err: ctx.Err()}
			case <-time.After(c.retryDelay()):
			}
		}
	}
	c.inc(metrics.CounterFetchErrors)
	return nil, lastErr
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 30 * time.Second
}

func (c *Client) retryDelay() time.Duration {
	if c.RetryDelay > 0 {
		return c.RetryDelay
	}
	return time.Second
}

func (c *Client) inc(name string) {
	if c.Metrics != nil {
		c.Metrics.Inc(name)
	}
}
