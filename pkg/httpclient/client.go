// Package httpclient is the outbound HTTP stack used to reach the remote
// cart and wishlist stores.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// Config tunes the transport and the read retry policy.
type Config struct {
	Timeout         time.Duration
	MaxRetries      int // extra attempts granted to GET and HEAD
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	MaxConnsPerHost int
}

// DefaultConfig returns settings sized for an in-cluster store.
func DefaultConfig() Config {
	return Config{
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    2 * time.Second,
		MaxConnsPerHost: 64,
	}
}

// Client sends requests over a pooled transport. Reads are retried on
// network errors and 5xx answers; every other method is sent exactly once
// because a replayed mutation could apply twice.
type Client struct {
	httpClient *http.Client
	config     Config
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
	transport.MaxConnsPerHost = cfg.MaxConnsPerHost
	transport.DialContext = (&net.Dialer{Timeout: 3 * time.Second, KeepAlive: 30 * time.Second}).DialContext

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config:     cfg,
	}
}

// Do sends req, retrying reads as described on Client.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	attempts := 1
	if req.Method == http.MethodGet || req.Method == http.MethodHead {
		attempts += c.config.MaxRetries
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.httpClient.Do(req)
		if attempt >= attempts || !shouldRetry(resp, err) {
			if err != nil {
				return nil, fmt.Errorf("%s %s (attempt %d): %w", req.Method, req.URL.Path, attempt, err)
			}
			return resp, nil
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		timer := time.NewTimer(c.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// shouldRetry reports whether a read that ended in resp or err is worth
// another attempt.
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return false
		}
		var netErr net.Error
		return errors.As(err, &netErr)
	}
	return resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented
}

// backoff doubles RetryWaitMin per attempt up to RetryWaitMax and then
// picks uniformly from the upper half of that window.
func (c *Client) backoff(attempt int) time.Duration {
	wait := c.config.RetryWaitMax
	if shift := attempt - 1; shift < 32 {
		if w := c.config.RetryWaitMin << shift; w > 0 && w < wait {
			wait = w
		}
	}
	half := wait / 2
	if half <= 0 {
		return wait
	}
	return half + rand.N(half+1) // #nosec G404 -- retry jitter
}

// NewJSONRequest builds a request whose body is the JSON encoding of payload.
// A nil payload produces a request without a body.
func NewJSONRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s body: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
