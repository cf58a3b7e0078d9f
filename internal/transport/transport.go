// Package transport sends financial pings over HTTP.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/blackwell-systems/rlztrack/internal/rlz"
)

// DefaultServerURL is the ping server used when none is configured.
const DefaultServerURL = "https://clients1.google.com"

const (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3
)

// ErrStatus is wrapped by errors for non-2xx replies.
var ErrStatus = errors.New("transport: unexpected status")

// Client sends ping requests to one server.
type Client struct {
	base    *url.URL
	http    *http.Client
	retries uint
	backoff func() backoff.BackOff
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries sets how many attempts a send makes in total.
func WithRetries(n uint) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithBackOff sets the retry schedule. Each send gets a fresh one.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.backoff = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New returns a client for serverURL, which must be an absolute http(s)
// URL. The default HTTP client negotiates HTTP/2 over TLS.
func New(serverURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", serverURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		base:    base,
		retries: DefaultRetries,
		backoff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		h, err := BuildHTTP2Client(timeout)
		if err != nil {
			return nil, err
		}
		c.http = h
	}
	return c, nil
}

// BuildHTTP2Client creates an HTTP client that prefers HTTP/2 on TLS
// connections and falls back to HTTP/1.1.
func BuildHTTP2Client(timeout time.Duration) (*http.Client, error) {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	if _, err := http2.ConfigureTransports(t); err != nil {
		return nil, fmt.Errorf("failed to configure http2: %w", err)
	}
	return &http.Client{Transport: t, Timeout: timeout}, nil
}

// Send issues GET <server><request> and returns the body. Server errors and
// network failures are retried; 4xx replies are not. Bodies are read up to
// one byte past the response limit so oversized replies still fail
// validation rather than being cut to fit.
func (c *Client) Send(ctx context.Context, request string) (string, error) {
	target, err := c.resolve(request)
	if err != nil {
		return "", err
	}

	attempt := 0
	op := func() (string, error) {
		attempt++
		body, err := c.get(ctx, target)
		if err != nil {
			c.log.Debug().Err(err).Int("attempt", attempt).Msg("ping attempt failed")
		}
		return body, err
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxTries(c.retries),
	)
	if err != nil {
		return "", fmt.Errorf("ping %s: %w", c.base.Host, err)
	}
	return body, nil
}

func (c *Client) resolve(request string) (string, error) {
	if !strings.HasPrefix(request, "/") {
		return "", fmt.Errorf("%w: request must be a path, got %q", rlz.ErrInvalidInput, request)
	}
	ref, err := url.Parse(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", rlz.ErrInvalidInput, err)
	}
	return c.base.ResolveReference(ref).String(), nil
}

func (c *Client) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", "rlztrack")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, rlz.MaxPingResponseLength+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", backoff.Permanent(fmt.Errorf("%w: %s", ErrStatus, resp.Status))
	}
	return string(body), nil
}
