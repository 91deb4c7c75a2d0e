package httpfast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/park285/fengrid/pkg/griddto"
	"github.com/valyala/fasthttp"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

// Client talks to a running fengrid server.
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) ClientOption {
	return func(c *Client) { c.headers = h }
}

func WithRetry(n int) ClientOption {
	return func(c *Client) { c.retryMax = n }
}

// WithDial replaces the TCP dialer, e.g. with an in-memory listener.
func WithDial(dial fasthttp.DialFunc) ClientOption {
	return func(c *Client) { c.http.Dial = dial }
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		defaultTimeout: 30 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   griddto.Error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fengrid api error: status=%d code=%s message=%s", e.Status, e.Body.Code, e.Body.Message)
}

// Render returns the composite PNG for positions.
func (c *Client) Render(ctx context.Context, positions []string) ([]byte, error) {
	_, body, err := c.do(ctx, fasthttp.MethodPost, "/render", griddto.RenderRequest{Positions: positions}, true)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) RenderJSON(ctx context.Context, positions []string) (*griddto.RenderResponse, error) {
	_, body, err := c.do(ctx, fasthttp.MethodPost, "/render.json", griddto.RenderRequest{Positions: positions}, true)
	if err != nil {
		return nil, err
	}
	var out griddto.RenderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Health reports readiness. A 503 from a server that is still loading is
// not an error.
func (c *Client) Health(ctx context.Context) (*griddto.Health, error) {
	status, body, err := c.do(ctx, fasthttp.MethodGet, "/healthz", nil, false)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || status != fasthttp.StatusServiceUnavailable {
			return nil, err
		}
	}
	var out griddto.Health
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// do returns the final status and a copy of the response body. Non-2xx
// responses are returned as *APIError together with their body.
func (c *Client) do(ctx context.Context, method, path string, in any, retry bool) (int, []byte, error) {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	attempts := 1
	if retry && c.retryMax > 1 {
		attempts = c.retryMax
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx))
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			if attempt == attempts {
				return 0, nil, lastErr
			}
			if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return 0, nil, lastErr
			}
			continue
		}

		status := resp.StatusCode()
		body := append([]byte(nil), resp.Body()...)
		if status >= 200 && status < 300 {
			return status, body, nil
		}

		apiErr := &APIError{Status: status}
		if jerr := json.Unmarshal(body, &apiErr.Body); jerr != nil || apiErr.Body.Code == "" {
			apiErr.Body = griddto.Error{Code: griddto.CodeInternal, Message: truncate(string(body), 512)}
		}
		if attempt == attempts || !shouldRetryStatus(status) {
			return status, body, apiErr
		}
		lastErr = apiErr
		if sleepErr := sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
			return status, body, lastErr
		}
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return 0, nil, lastErr
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case fasthttp.StatusTooManyRequests, fasthttp.StatusBadGateway, fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
