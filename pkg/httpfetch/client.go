// Package httpfetch is the shared outbound HTTP client for everything
// that talks to a site over the network or to a JSON REST API: the
// Discoverer fetching robots.txt/schema_map.xml/sitemaps, the Worker
// fetching payload files, and the Indexer calling an embedding or
// search endpoint. One client, one
// timeout/retry policy, adapted from the teacher's HTTPChecker.
package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Client wraps *http.Client with a bounded exponential-backoff retry
// for transient failures (connection errors and 5xx/429 responses).
// Non-retryable responses (4xx other than 429) are returned as-is for
// the caller to interpret.
type Client struct {
	HTTP       *http.Client
	MaxRetries uint64
	UserAgent  string
}

// New creates a Client with the given timeout and a conservative
// default retry budget.
func New(timeout time.Duration) *Client {
	return &Client{
		HTTP:       &http.Client{Timeout: timeout},
		MaxRetries: 3,
		UserAgent:  "schemacrawler/1.0",
	}
}

// Get performs an HTTP GET with retry, returning the response body.
// A non-retryable status (any 4xx other than 429) is not an error: the
// body and status code are returned with a nil error so callers (e.g.
// the Discoverer, which treats a non-200 robots.txt as "no directives,
// fall back to schema_map.xml") can branch on it. A retryable status
// that persists past the retry budget is returned the same way.
func (c *Client) Get(ctx context.Context, url string) ([]byte, int, error) {
	var body []byte
	var status int

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("httpfetch: build request: %w", err))
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("httpfetch: do request: %w", err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("httpfetch: read body: %w", err)
		}
		body = data

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("httpfetch: retryable status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		var permErr *backoff.PermanentError
		if asPermanent(err, &permErr) {
			return nil, 0, permErr.Err
		}
		if status != 0 {
			return body, status, nil
		}
		return nil, 0, err
	}
	return body, status, nil
}

// Do performs an HTTP request with the given method, optional body,
// content type and extra headers, with the same retry and status
// handling as Get, returning the response body and status.
func (c *Client) Do(ctx context.Context, method, url string, contentType string, payload []byte, headers map[string]string) ([]byte, int, error) {
	var body []byte
	var status int

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, newReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("httpfetch: build request: %w", err))
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return fmt.Errorf("httpfetch: do request: %w", err)
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("httpfetch: read body: %w", err)
		}
		body = data

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("httpfetch: retryable status %d", resp.StatusCode)
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		var permErr *backoff.PermanentError
		if asPermanent(err, &permErr) {
			return nil, 0, permErr.Err
		}
		if status != 0 {
			return body, status, nil
		}
		return nil, 0, err
	}
	return body, status, nil
}

func asPermanent(err error, target **backoff.PermanentError) bool {
	pe, ok := err.(*backoff.PermanentError)
	if ok {
		*target = pe
	}
	return ok
}

func newReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}
