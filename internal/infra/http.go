package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultUserAgent is sent to upstreams that reject the Go default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// ErrHTTP is returned for upstream responses with status >= 400.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *ErrHTTP) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %s: %s", e.Status, e.Body)
	}
	return "http " + e.Status
}

// Temporary reports whether the status is worth one more attempt.
func (e *ErrHTTP) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// HTTPClient performs GET requests with a per-request timeout and an
// optional single retry on transport errors and 5xx/429 responses.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   time.Duration
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.client.Timeout = d }
}

// WithRetries sets the number of extra attempts. Values above one are clamped to one.
func WithRetries(n int) HTTPOption {
	return func(c *HTTPClient) { c.retries = min(max(n, 0), 1) }
}

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) HTTPOption {
	return func(c *HTTPClient) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithBackoff sets the pause before the retry.
func WithBackoff(d time.Duration) HTTPOption {
	return func(c *HTTPClient) { c.backoff = d }
}

// NewHTTPClient returns a client with a 30s timeout and one retry.
func NewHTTPClient(opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: DefaultUserAgent,
		retries:   1,
		backoff:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoGet issues a GET and returns the body for a successful response.
// The caller must close the body.
func (c *HTTPClient) DoGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	var (
		body   io.ReadCloser
		status int
		err    error
	)
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, status, errors.Join(err, ctx.Err())
			case <-time.After(c.backoff):
			}
		}
		body, status, err = c.doGet(ctx, url, headers)
		if err == nil || !retryable(ctx, err) {
			return body, status, err
		}
	}
	return body, status, err
}

// GetBytes is DoGet followed by reading the whole body.
func (c *HTTPClient) GetBytes(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, err := c.DoGet(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func (c *HTTPClient) doGet(ctx context.Context, url string, headers map[string]string) (io.ReadCloser, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/csv, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, resp.StatusCode, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	return resp.Body, resp.StatusCode, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	return true
}
