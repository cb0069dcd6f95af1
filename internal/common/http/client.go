// internal/common/http/client.go
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is a fully rendered outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response carries the status and at most MaxResponseBytes of the body.
type Response struct {
	StatusCode int
	Body       []byte
	Truncated  bool
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

type Client struct {
	httpClient       *http.Client
	maxResponseBytes int64
}

func NewClient(timeout time.Duration, maxResponseBytes int) *Client {
	if maxResponseBytes <= 0 {
		maxResponseBytes = 64 * 1024
	}
	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		maxResponseBytes: int64(maxResponseBytes),
	}
}

// NewClientWith wraps an existing *http.Client, used by tests against httptest servers.
func NewClientWith(hc *http.Client, maxResponseBytes int) *Client {
	c := NewClient(0, maxResponseBytes)
	c.httpClient = hc
	return c
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// Send performs req and reads a bounded response body. A non-2xx status is not an error.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limited, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode, Body: limited}
	if int64(len(limited)) > c.maxResponseBytes {
		out.Body = limited[:c.maxResponseBytes]
		out.Truncated = true
	}
	return out, nil
}
