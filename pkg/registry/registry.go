// Package registry provides shared HTTP plumbing for the package-registry
// clients used by the maintenance check. Each concrete registry (npm, PyPI,
// the Go module proxy) lives in a subpackage and embeds [Client].
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/depsentry/depsentry/pkg/cache"
	"github.com/depsentry/depsentry/pkg/httputil"
)

const (
	httpTimeout = 10 * time.Second

	// CacheTTL is how long registry metadata stays fresh. Publish dates
	// and deprecation flags change rarely, so a day is plenty.
	CacheTTL = 24 * time.Hour
)

// ErrNotFound is returned when a package does not exist in the registry.
var ErrNotFound = errors.New("package not found")

// Maintenance holds the staleness signals a registry reports for a package.
type Maintenance struct {
	LatestVersion      string    `json:"latest_version"`
	LastPublished      time.Time `json:"last_published,omitempty"`
	Deprecated         bool      `json:"deprecated"`
	DeprecationMessage string    `json:"deprecation_message,omitempty"`
}

// Stale reports whether the package has seen no release within the given
// window. Packages with no recorded publish date are never stale.
func (m Maintenance) Stale(window time.Duration) bool {
	if m.LastPublished.IsZero() {
		return false
	}
	return time.Since(m.LastPublished) > window
}

// Client provides caching, retry, and header handling shared by all
// registry clients.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	headers map[string]string
}

// NewClient creates a Client with the given cache and default headers.
// A nil cache disables caching. Pass nil for headers if none are needed.
func NewClient(c cache.Cache, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		cache:   c,
		headers: headers,
	}
}

// Cached retrieves a value from cache or executes fetch and caches the
// result. The fetch function should populate v; on success, v is stored
// under key for [CacheTTL].
func (c *Client) Cached(ctx context.Context, key string, v any, fetch func() error) error {
	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		if json.Unmarshal(data, v) == nil {
			return nil
		}
	}
	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, CacheTTL)
	}
	return nil
}

// GetJSON performs a GET request and decodes the JSON response into v.
// 404 maps to [ErrNotFound]; 429 and 5xx come back retryable for the
// surrounding Cached/retry loop.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &httputil.RetryableError{Err: fmt.Errorf("registry request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	if err := httputil.CheckResponse(resp); err != nil {
		return err
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
