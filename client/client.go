package client

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/ytget/linkedin-dl/internal/logger"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRetries      = 3
	defaultStallTimeout = 30 * time.Second

	userAgentValue   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 3 * time.Second
	retryableMinCode = http.StatusInternalServerError // 500
	maxPageBytes     = 16 << 20
)

// defaultTransport is a tuned HTTP transport reused across clients.
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 10 * time.Second,
	ForceAttemptHTTP2:     true,
	// Content-Encoding is handled by GetPage so that brotli works too.
	DisableCompression: true,
	ReadBufferSize:     16 * 1024,
	WriteBufferSize:    16 * 1024,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// Config holds optional client parameters. Zero values use defaults.
type Config struct {
	// Timeout bounds page and manifest requests. Streams are not bound by
	// it, so a long capture is never cut by the client.
	Timeout time.Duration
	// StallTimeout is how long a stream may go without delivering a byte
	// before the capture gives up on the connection.
	StallTimeout time.Duration
	Retries      int
	UserAgent    string
	ProxyURL     string
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP status %d", e.URL, e.Code)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= retryableMinCode || e.Code == http.StatusTooManyRequests
}

// Page is a fetched and decoded document.
type Page struct {
	// URL is the final URL after redirects.
	URL  string
	Body []byte
}

// Client wraps http.Client with retry/backoff and default headers.
type Client struct {
	HTTPClient   *http.Client
	Retries      int
	UserAgent    string
	Timeout      time.Duration
	StallTimeout time.Duration
	log          *logger.ComponentLogger
}

// New creates a new Client with a tuned Transport, default timeout, and retries.
func New() *Client {
	return NewWith(Config{})
}

// NewWith creates a new client with provided config. Zero values use defaults.
func NewWith(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	stall := cfg.StallTimeout
	if stall <= 0 {
		stall = defaultStallTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = userAgentValue
	}

	tr := defaultTransport.Clone()
	if cfg.ProxyURL != "" {
		if proxyFunc, err := proxyFromURLString(cfg.ProxyURL); err == nil {
			tr.Proxy = proxyFunc
		}
	}

	return &Client{
		HTTPClient:   &http.Client{Transport: tr},
		Retries:      retries,
		UserAgent:    ua,
		Timeout:      timeout,
		StallTimeout: stall,
		log:          logger.WithComponent(logger.ComponentClient),
	}
}

// WithHTTPClient wraps an existing http.Client (for example one from httptest).
func WithHTTPClient(hc *http.Client) *Client {
	c := New()
	if hc != nil {
		c.HTTPClient = hc
	}
	return c
}

// SetLogger replaces the component logger.
func (c *Client) SetLogger(l *logger.Logger) {
	c.log = l.WithComponent(logger.ComponentClient)
}

func (c *Client) newRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	ua := c.UserAgent
	if ua == "" {
		ua = userAgentValue
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	return req, nil
}

// GetPage fetches a document (page or manifest), retrying network failures
// and 5xx/429 responses with exponential backoff. The body is decoded from
// gzip or brotli according to Content-Encoding.
func (c *Client) GetPage(ctx context.Context, rawURL string) (*Page, error) {
	retries := c.Retries
	if retries < 1 {
		retries = 1
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var lastErr error
	backoff := initialBackoff
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			c.log.Debug("Retrying page fetch", map[string]interface{}{"url": rawURL, "attempt": attempt + 1, "error": lastErr})
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		page, err := c.getPageOnce(ctx, rawURL, timeout)
		if err == nil {
			return page, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Temporary() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("get %s failed after %d attempts: %w", rawURL, retries, lastErr)
}

// GetPageOnce is GetPage without the retry loop.
func (c *Client) GetPageOnce(ctx context.Context, rawURL string) (*Page, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return c.getPageOnce(ctx, rawURL, timeout)
}

// StallAfter returns the stall timeout, falling back to the default.
func (c *Client) StallAfter() time.Duration {
	if c.StallTimeout <= 0 {
		return defaultStallTimeout
	}
	return c.StallTimeout
}

func (c *Client) getPageOnce(ctx context.Context, rawURL string, timeout time.Duration) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	c.log.Debug("Page response", map[string]interface{}{"url": rawURL, "status": resp.StatusCode, "encoding": resp.Header.Get("Content-Encoding")})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(reader, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Page{URL: final, Body: body}, nil
}

// decodeBody unwraps the response body according to Content-Encoding.
func decodeBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// Open starts a streaming GET and returns the response body. It makes a
// single request; deciding whether to try again belongs to the caller.
// Non-2xx responses are reported as *StatusError.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := c.newRequest(ctx, rawURL)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, 0, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	c.log.Debug("Stream opened", map[string]interface{}{"url": rawURL, "status": resp.StatusCode, "length": resp.ContentLength})
	return resp.Body, resp.ContentLength, nil
}

func proxyFromURLString(raw string) (func(*http.Request) (*url.URL, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return http.ProxyURL(u), nil
}
