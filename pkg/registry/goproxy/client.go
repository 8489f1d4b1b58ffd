// Package goproxy queries the Go module proxy for module maintenance
// signals.
package goproxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/cache"
	"github.com/depsentry/depsentry/pkg/registry"
)

// Client fetches maintenance metadata from a Go module proxy.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a client against proxy.golang.org.
func NewClient(c cache.Cache) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: "https://proxy.golang.org",
	}
}

// NewClientWithBaseURL creates a client against a custom proxy endpoint.
func NewClientWithBaseURL(c cache.Cache, baseURL string) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type latestResponse struct {
	Version string `json:"Version"`
	Time    string `json:"Time"`
}

// Fetch returns maintenance signals for a module path. The proxy has no
// deprecation concept, so only version and publish time are populated.
func (c *Client) Fetch(ctx context.Context, module string) (*registry.Maintenance, error) {
	module = strings.TrimSpace(module)
	key := "registry:goproxy:" + module

	var m registry.Maintenance
	err := c.Cached(ctx, key, &m, func() error {
		var data latestResponse
		url := fmt.Sprintf("%s/%s/@latest", c.baseURL, escapePath(module))
		if err := c.GetJSON(ctx, url, &data); err != nil {
			return err
		}

		m = registry.Maintenance{LatestVersion: data.Version}
		if t, err := time.Parse(time.RFC3339, data.Time); err == nil {
			m.LastPublished = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// escapePath applies the module proxy case encoding: uppercase letters
// become "!" followed by the lowercase letter.
func escapePath(path string) string {
	var b strings.Builder
	for _, r := range path {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
