package deviceconfig

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/empirlink/internal/hardware"
	"github.com/muurk/empirlink/internal/logging"
	"github.com/muurk/empirlink/internal/version"
)

// Controller document paths
const (
	HardwareConfigPath = "/configuration/hardware-config.json"
	SchemaPath         = "/schema.json"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default hardware config cache validity
	DefaultCacheDuration = 30 * time.Second

	maxDocumentSize = 8 << 20
)

// Client fetches configuration documents from the controller's web server
type Client struct {
	// BaseURL is the controller base URL (e.g., "http://192.168.1.1")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retries after the first attempt
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// CacheDuration is how long to cache the hardware config (0 = no cache)
	CacheDuration time.Duration

	cachedHardware *hardware.Config
	cacheTime      time.Time
	cacheMutex     sync.RWMutex
}

// NewClient creates a client for the controller at host ("ip" or "ip:port")
func NewClient(host string) *Client {
	return NewClientWithURL("http://" + host)
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		CacheDuration: DefaultCacheDuration,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// FetchHardwareConfig retrieves the controller's full hardware config.
// A fresh cached copy is returned without a request.
func (c *Client) FetchHardwareConfig(ctx context.Context) (*hardware.Config, error) {
	if cached := c.GetCachedHardwareConfig(); cached != nil {
		return cached, nil
	}

	body, err := c.get(ctx, HardwareConfigPath)
	if err != nil {
		return nil, err
	}

	cfg, err := hardware.Parse(body)
	if err != nil {
		return nil, NewParseError("failed to parse hardware config", err)
	}

	if c.CacheDuration > 0 {
		c.cacheMutex.Lock()
		c.cachedHardware = cfg
		c.cacheTime = time.Now()
		c.cacheMutex.Unlock()
	}
	return cfg, nil
}

// LoadHardware implements autosub.Loader
func (c *Client) LoadHardware(ctx context.Context) (*hardware.Config, error) {
	return c.FetchHardwareConfig(ctx)
}

// FetchSchema retrieves the raw UI schema document
func (c *Client) FetchSchema(ctx context.Context) ([]byte, error) {
	return c.get(ctx, SchemaPath)
}

// FetchSchemaHardware retrieves the UI schema and extracts its hardware
func (c *Client) FetchSchemaHardware(ctx context.Context) (*hardware.Config, error) {
	body, err := c.FetchSchema(ctx)
	if err != nil {
		return nil, err
	}
	cfg, err := hardware.FromSchema(body)
	if err != nil {
		return nil, NewParseError("failed to parse schema", err)
	}
	return cfg, nil
}

// InvalidateCache clears the cached hardware config
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cachedHardware = nil
	c.cacheTime = time.Time{}
}

// GetCachedHardwareConfig returns the cached hardware config, or nil when
// there is no fresh copy
func (c *Client) GetCachedHardwareConfig() *hardware.Config {
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	if c.cachedHardware != nil && c.CacheDuration > 0 && time.Since(c.cacheTime) < c.CacheDuration {
		cached := *c.cachedHardware
		return &cached
	}
	return nil
}

// get fetches path with retries. Non-retryable errors end the loop early.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.RetryDelay
	b.MaxInterval = c.MaxRetryDelay
	b.MaxElapsedTime = 0

	maxRetries := c.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		data, err := c.getAttempt(ctx, path)
		if err != nil {
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = data
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logging.Debug("Retrying controller fetch",
			zap.String("path", path),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

// getAttempt performs a single GET
func (c *Client) getAttempt(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError(fmt.Sprintf("GET %s failed", path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, path)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	return body, nil
}
