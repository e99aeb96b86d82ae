package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTooLarge is wrapped by Error when a body exceeds the configured limit.
var ErrTooLarge = errors.New("response body exceeds size limit")

// Error is the FetchError kind: transport failure, timeout, non-2xx status
// or an oversized body.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

type Client struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
}

func NewClient(opts Options) *Client {
	return &Client{
		client:    &http.Client{Timeout: opts.Timeout},
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// NewClientWithHTTP wraps an existing *http.Client, e.g. an httptest server's.
func NewClientWithHTTP(client *http.Client, opts Options) *Client {
	return &Client{
		client:    client,
		maxBytes:  opts.MaxBytes,
		userAgent: opts.UserAgent,
	}
}

// Fetch performs a single GET. There is no retry.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	body := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		if resp.ContentLength > c.maxBytes {
			return nil, &Error{URL: url, StatusCode: resp.StatusCode, Err: ErrTooLarge}
		}
		body = io.LimitReader(resp.Body, c.maxBytes+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Err: ErrTooLarge}
	}

	return data, nil
}
