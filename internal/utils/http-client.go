package utils

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/mediafetch/internal/metrics"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	receiveBufferSize = 1024 * 1024
	sendBufferSize    = 64 * 1024
)

type HTTPClientConfig struct {
	Timeout        time.Duration // response header timeout per request
	KATimeout      time.Duration
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	Headers        map[string]string
	Cookie         string
	BearerToken    string
	HostRules      HostRules
	RetryAttempts  int
	Backoff        func(attempt int) time.Duration
	HighThreadMode bool // advanced socket options for high concurrency
	Metrics        *metrics.Metrics
}

// FetchClient is the retrying transport every downloader goes through.
type FetchClient struct {
	client *http.Client
	config HTTPClientConfig
	tokens oauth2.TokenSource
}

// DefaultBackoff waits 2^attempt seconds before every attempt but the first.
func DefaultBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return time.Duration(1<<attempt) * time.Second
}

func NewFetchClient(cfg HTTPClientConfig) *FetchClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.KATimeout == 0 {
		cfg.KATimeout = 90 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.HostRules == nil {
		cfg.HostRules = DefaultHostRules
	}
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				if err := setSocketOptions(fd); err != nil {
					log.Debug().Str("op", "utils/http-client").Err(err).Msgf("socket buffers not applied for %s", address)
				}
			})
		}
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		IdleConnTimeout:       cfg.KATimeout,
		ResponseHeaderTimeout: cfg.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
		Proxy:                 http.ProxyFromEnvironment,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err == nil {
			if cfg.ProxyUsername != "" {
				if cfg.ProxyPassword != "" {
					proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
				} else {
					proxyURL.User = url.User(cfg.ProxyUsername)
				}
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		} else {
			log.Warn().Str("op", "utils/http-client").Err(err).Msg("ignoring unparsable proxy URL")
		}
	}
	fc := &FetchClient{
		client: &http.Client{Transport: transport},
		config: cfg,
	}
	if cfg.BearerToken != "" {
		fc.tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken, TokenType: "Bearer"})
	}
	return fc
}

func (c *FetchClient) Config() HTTPClientConfig {
	return c.config
}

func (c *FetchClient) applyHeaders(req *http.Request, extra map[string]string) error {
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	} else {
		req.Header.Set("User-Agent", ToolUserAgent)
	}
	for k, v := range c.config.HostRules.HeadersFor(req.URL.String()) {
		req.Header.Set(k, v)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	if c.config.Cookie != "" {
		req.Header.Set("Cookie", c.config.Cookie)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return fmt.Errorf("error getting auth token: %w", err)
		}
		token.SetAuthHeader(req)
	}
	return nil
}

// withRetry runs op until it succeeds or the attempt budget is spent. op
// reports the HTTP status it saw (0 when none) so the final error can carry it.
func (c *FetchClient) withRetry(ctx context.Context, link string, op func() (int, error)) error {
	var lastErr error
	var lastStatus int
	attempts := 0
	for attempt := range c.config.RetryAttempts {
		if delay := c.config.Backoff(attempt); attempt > 0 && delay > 0 {
			log.Debug().Str("op", "utils/http-client").Msgf("waiting %s before attempt %d/%d for %s", delay, attempt+1, c.config.RetryAttempts, link)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if attempt > 0 {
			c.config.Metrics.IncRetries()
			log.Warn().Str("op", "utils/http-client").Err(lastErr).Msgf("retrying %s (attempt %d/%d)", link, attempt+1, c.config.RetryAttempts)
		}
		attempts++
		status, err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		lastStatus = status
	}
	if lastErr == nil {
		lastErr = ErrMaxRetriesExceeded
	}
	return &FetchError{URL: link, StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

func (c *FetchClient) send(ctx context.Context, method, link string, headers map[string]string, rng *ByteRange) (*http.Response, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("error creating %s request: %w", method, err)
	}
	if err := c.applyHeaders(req, headers); err != nil {
		return nil, 0, err
	}
	if rng != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}
	c.config.Metrics.IncRequests(method)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, resp.StatusCode, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if rng != nil && method == http.MethodGet && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, resp.StatusCode, ErrRangeNotSatisfied
	}
	return resp, resp.StatusCode, nil
}

// Get returns the open response of a successful GET. Retries cover obtaining
// the response only; reading the body is the caller's business.
func (c *FetchClient) Get(ctx context.Context, link string, headers map[string]string, rng *ByteRange) (*http.Response, error) {
	var resp *http.Response
	err := c.withRetry(ctx, link, func() (int, error) {
		r, status, err := c.send(ctx, http.MethodGet, link, headers, rng)
		if err != nil {
			return status, err
		}
		resp = r
		return status, nil
	})
	return resp, err
}

func (c *FetchClient) Head(ctx context.Context, link string, headers map[string]string) (*http.Response, error) {
	var resp *http.Response
	err := c.withRetry(ctx, link, func() (int, error) {
		r, status, err := c.send(ctx, http.MethodHead, link, headers, nil)
		if err != nil {
			return status, err
		}
		resp = r
		return status, nil
	})
	return resp, err
}

// GetBytes fetches the whole body; a failed read counts as a failed attempt.
func (c *FetchClient) GetBytes(ctx context.Context, link string, headers map[string]string, rng *ByteRange) ([]byte, error) {
	var body []byte
	err := c.withRetry(ctx, link, func() (int, error) {
		resp, status, err := c.send(ctx, http.MethodGet, link, headers, rng)
		if err != nil {
			return status, err
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return status, fmt.Errorf("error reading response body: %w", err)
		}
		body = data
		return status, nil
	})
	return body, err
}

// FetchToFile writes the (ranged) body to path, truncating it on every attempt.
func (c *FetchClient) FetchToFile(ctx context.Context, link string, headers map[string]string, rng *ByteRange, path string, limiter *rate.Limiter) (int64, error) {
	var written int64
	err := c.withRetry(ctx, link, func() (int, error) {
		resp, status, err := c.send(ctx, http.MethodGet, link, headers, rng)
		if err != nil {
			return status, err
		}
		defer resp.Body.Close()
		out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return status, fmt.Errorf("error opening %s: %w", path, err)
		}
		defer out.Close()
		buffer := make([]byte, DefaultBufferSize)
		n, err := io.CopyBuffer(NewRateLimitedWriter(ctx, out, limiter), resp.Body, buffer)
		if err != nil {
			return status, fmt.Errorf("error writing %s: %w", path, err)
		}
		if rng != nil && n != rng.Len() {
			return status, fmt.Errorf("%w: expected %d bytes, got %d", ErrSizeMismatch, rng.Len(), n)
		}
		written = n
		return status, out.Sync()
	})
	if err == nil {
		c.config.Metrics.AddBytes(written)
	}
	return written, err
}
