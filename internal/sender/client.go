package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBodySize caps how much of a reply is read.
const maxResponseBodySize = 1 << 20

// Response is what came back from one API call. Error is set only when no
// usable reply arrived; any HTTP status, including errors, leaves it nil.
type Response struct {
	Body       []byte
	StatusCode int
	Latency    time.Duration
	Error      error
}

// Client issues requests against a single API host with a fixed set of
// headers and a per-call deadline.
type Client struct {
	httpClient *http.Client
	header     http.Header
	timeout    time.Duration
}

// NewClient returns a [Client] that sends header on every request and gives
// up on a call after timeout.
func NewClient(header http.Header, timeout time.Duration) *Client {
	// every call goes to the same host
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		httpClient: &http.Client{Transport: transport},
		header:     header.Clone(),
		timeout:    timeout,
	}
}

// Get fetches url.
func (c *Client) Get(ctx context.Context, url string) Response {
	return c.call(ctx, http.MethodGet, url, nil)
}

// PostJSON encodes v and posts it to url.
func (c *Client) PostJSON(ctx context.Context, url string, v any) Response {
	payload, err := json.Marshal(v)
	if err != nil {
		return Response{Error: fmt.Errorf("failed to encode request: %w", err)}
	}
	return c.call(ctx, http.MethodPost, url, payload)
}

func (c *Client) call(ctx context.Context, method, url string, payload []byte) Response {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	began := time.Now()
	fail := func(status int, err error) Response {
		return Response{StatusCode: status, Latency: time.Since(began), Error: err}
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fail(0, fmt.Errorf("failed to create request: %w", err))
	}
	for name, values := range c.header {
		req.Header[name] = values
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("failed to read response body: %w", err))
	}
	return Response{Body: data, StatusCode: resp.StatusCode, Latency: time.Since(began)}
}

// Close drops pooled connections. A nil Client is fine.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}
