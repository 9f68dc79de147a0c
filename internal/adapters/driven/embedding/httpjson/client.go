// Package httpjson is the JSON-over-HTTP client used by the remote embedding
// adapters. Requests are throttled with a token bucket, and responses with
// status 429 or 5xx are retried with exponential backoff, honouring
// Retry-After when the server sends it.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/fintweet/internal/logger"
)

// Defaults applied by New.
const (
	DefaultMaxTries       = 3
	DefaultInitialBackoff = 500 * time.Millisecond

	maxErrorBody = 4 << 10
)

// Config describes one remote endpoint.
type Config struct {
	// Provider prefixes error messages, e.g. "openai".
	Provider string

	BaseURL string
	Timeout time.Duration

	// Header is sent with every request.
	Header http.Header

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64

	// MaxTries bounds attempts per request, including the first.
	MaxTries uint

	InitialBackoff time.Duration
}

// Client sends JSON requests to a single base URL.
type Client struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header
	limiter  *rate.Limiter
	maxTries uint
	initial  time.Duration
}

// New builds a client from cfg.
func New(cfg Config) *Client {
	c := &Client{
		provider: cfg.Provider,
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		header:   cfg.Header,
		maxTries: cfg.MaxTries,
		initial:  cfg.InitialBackoff,
	}
	if c.maxTries == 0 {
		c.maxTries = DefaultMaxTries
	}
	if c.initial <= 0 {
		c.initial = DefaultInitialBackoff
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// BaseURL returns the endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Throttled reports whether requests pass through a rate limiter.
func (c *Client) Throttled() bool {
	return c.limiter != nil
}

// StatusError is a non-200 response.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.Code, e.Message)
}

// Retryable reports whether the request may succeed if sent again.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Post sends in as JSON to path and decodes the 200 response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.provider, err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, c.post(ctx, path, body, out)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("%s: retrying in %s: %v", c.provider, wait, err)
		}),
	)
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("%s: rate limiter: %w", c.provider, err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%s: create request: %w", c.provider, err))
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%s: send request: %w", c.provider, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("%s: decode response: %w", c.provider, err))
	}
	return nil
}

// Get requests path and discards the body. It is used for liveness checks
// and is never retried.
func (c *Client) Get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	c.setHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: ping failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.readStatus(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeader(req *http.Request) {
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

func (c *Client) readStatus(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Provider: c.provider, Code: resp.StatusCode, Message: errorMessage(raw)}
}

// statusError marks the response permanent unless its status is retryable.
func (c *Client) statusError(resp *http.Response) error {
	se := c.readStatus(resp)
	if !se.Retryable() {
		return backoff.Permanent(se)
	}
	if secs := retryAfter(resp.Header); secs > 0 {
		return fmt.Errorf("%w (%w)", se, backoff.RetryAfter(secs))
	}
	return se
}

// errorMessage extracts the message from the two error shapes remote
// embedders use, {"error":"..."} and {"error":{"message":"..."}}.
func errorMessage(raw []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		var s string
		if json.Unmarshal(body.Error, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
	}
	return string(bytes.TrimSpace(raw))
}

func retryAfter(h http.Header) int {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return secs
}
