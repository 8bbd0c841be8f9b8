package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	baseURLEnv     = "DIETI_BASE_URL"
	defaultTimeout = 10 * time.Second
)

var ErrEmptyMessage = errors.New("message must not be empty")

// ErrReplyTooLarge is returned instead of a truncated acknowledgement.
var ErrReplyTooLarge = errors.New("reply exceeds the size limit")

// StatusError is returned for any non-2xx answer.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type Client struct {
	baseURL       string
	httpClient    *http.Client
	timeout       time.Duration
	maxReplyBytes int64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each call. It never modifies the underlying
// *http.Client; zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithMaxReplyBytes caps the accepted reply size. Zero or negative removes
// the cap.
func WithMaxReplyBytes(n int64) Option {
	return func(c *Client) {
		c.maxReplyBytes = n
	}
}

// New builds a client for baseURL. An empty baseURL falls back to
// DIETI_BASE_URL and then to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
		if u, ok := os.LookupEnv(baseURLEnv); ok && u != "" {
			baseURL = u
		}
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout: defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// SendMessage posts message as a plain text body and returns the server's
// acknowledgement.
func (c *Client) SendMessage(ctx context.Context, message string) (string, error) {
	if message == "" {
		return "", ErrEmptyMessage
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/message", strings.NewReader(message))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if c.maxReplyBytes > 0 {
		body = io.LimitReader(resp.Body, c.maxReplyBytes+1)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read reply: %w", err)
	}
	if c.maxReplyBytes > 0 && int64(len(raw)) > c.maxReplyBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrReplyTooLarge, c.maxReplyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return string(raw), nil
}
