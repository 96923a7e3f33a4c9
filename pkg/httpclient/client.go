package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/notificare/notificare-go/pkg/logger"
)

// Sleeper waits for the given duration, respecting context cancellation.
// Injectable so retry schedules can be tested without real timers.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client performs authenticated REST calls against the Notificare backend.
// Zero value is not usable; use New.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	username   string
	password   string
	userAgent  string
	maxRetries int
	backoff    BackoffStrategy
	sleep      Sleeper
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets the application key/secret pair sent as Basic auth on
// every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the underlying transport, for proxies or testing.
// Nil clients are ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries bounds transport-level retry attempts. Negative values are
// ignored; zero disables retries entirely.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff replaces the retry schedule. Nil strategies are ignored.
func WithBackoff(b BackoffStrategy) Option {
	return func(c *Client) {
		if b != nil {
			c.backoff = b
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithSleeper replaces the delay function used between retries.
// Nil sleepers are ignored.
func WithSleeper(s Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleep = s
		}
	}
}

// WithLogger sets the logger for retry diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidBaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidBaseURL)
	}

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  "notificare-go",
		maxRetries: 3,
		backoff:    DefaultBackoffStrategy(),
		sleep:      defaultSleeper,
		log:        slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("httpclient: decode response: %w", err)
	}
	return nil
}

type requestConfig struct {
	body        []byte
	contentType string
	query       url.Values
	headers     map[string]string
	retries     *int
}

// RequestOption configures a single request.
type RequestOption func(*requestConfig) error

// WithJSONBody marshals v as the JSON request body.
func WithJSONBody(v any) RequestOption {
	return func(rc *requestConfig) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("httpclient: encode request body: %w", err)
		}
		rc.body = raw
		rc.contentType = "application/json"
		return nil
	}
}

// WithFormData builds a multipart/form-data body from fields and files.
// Files map field names to raw contents; the filename is reused as the field
// name, matching the media upload endpoints.
func WithFormData(fields map[string]string, files map[string][]byte) RequestOption {
	return func(rc *requestConfig) error {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return fmt.Errorf("httpclient: form field %q: %w", k, err)
			}
		}
		for name, raw := range files {
			fw, err := w.CreateFormFile(name, name)
			if err != nil {
				return fmt.Errorf("httpclient: form file %q: %w", name, err)
			}
			if _, err := fw.Write(raw); err != nil {
				return fmt.Errorf("httpclient: form file %q: %w", name, err)
			}
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("httpclient: finalize form: %w", err)
		}
		rc.body = buf.Bytes()
		rc.contentType = w.FormDataContentType()
		return nil
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(rc *requestConfig) error {
		if rc.query == nil {
			rc.query = url.Values{}
		}
		rc.query.Add(key, value)
		return nil
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *requestConfig) error {
		if rc.headers == nil {
			rc.headers = make(map[string]string)
		}
		rc.headers[key] = value
		return nil
	}
}

// WithRetries overrides the client's retry budget for this request.
func WithRetries(n int) RequestOption {
	return func(rc *requestConfig) error {
		if n >= 0 {
			rc.retries = &n
		}
		return nil
	}
}

// Do performs a request against path, retrying transport-level failures.
//
// A completed response with a 2xx status is returned as-is. A completed
// response with any other status returns a *NetworkError immediately, without
// consuming retry budget. Only attempts that fail before a response completes
// (dial errors, timeouts, connection resets) are retried, up to the
// configured maximum, sleeping per the backoff schedule between attempts.
func (c *Client) Do(ctx context.Context, method, path string, opts ...RequestOption) (*Response, error) {
	rc := &requestConfig{}
	for _, opt := range opts {
		if err := opt(rc); err != nil {
			return nil, err
		}
	}

	retries := c.maxRetries
	if rc.retries != nil {
		retries = *rc.retries
	}

	target := c.baseURL.JoinPath(path)
	if rc.query != nil {
		target.RawQuery = rc.query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextInterval(attempt)
			c.log.Debug("retrying request",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.attempt(ctx, method, target, rc)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		// A completed error response is an answer, not a delivery failure.
		// It is never retried; several flows inspect the status code.
		return nil, &NetworkError{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
			Method:     method,
			Path:       path,
		}
	}

	c.log.Warn("request failed after all attempts",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("attempts", retries+1),
		logger.Error(lastErr),
	)
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, retries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method string, target *url.URL, rc *requestConfig) (*Response, error) {
	var body io.Reader
	if rc.body != nil {
		body = bytes.NewReader(rc.body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if rc.contentType != "" {
		req.Header.Set("Content-Type", rc.contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	for k, v := range rc.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts...)
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts...)
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts...)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts...)
}

// EscapePath escapes a single path segment for interpolation into a REST path.
func EscapePath(segment string) string {
	return strings.ReplaceAll(url.PathEscape(segment), "+", "%2B")
}
