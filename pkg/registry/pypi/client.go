// Package pypi queries the PyPI JSON API for package maintenance signals.
package pypi

import (
	"context"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/cache"
	"github.com/depsentry/depsentry/pkg/registry"
)

// Client fetches maintenance metadata from PyPI.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a client against the public PyPI API.
func NewClient(c cache.Cache) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: "https://pypi.org",
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
func NewClientWithBaseURL(c cache.Cache, baseURL string) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type apiResponse struct {
	Info struct {
		Version string `json:"version"`
		Yanked  bool   `json:"yanked"`
	} `json:"info"`
	URLs []struct {
		UploadTime string `json:"upload_time_iso_8601"`
	} `json:"urls"`
}

// Fetch returns maintenance signals for a package. The name should already
// be PEP 503 normalized; PyPI redirects otherwise but normalized names
// keep the cache key stable.
func (c *Client) Fetch(ctx context.Context, name string) (*registry.Maintenance, error) {
	name = strings.TrimSpace(name)
	key := "registry:pypi:" + name

	var m registry.Maintenance
	err := c.Cached(ctx, key, &m, func() error {
		var doc apiResponse
		if err := c.GetJSON(ctx, c.baseURL+"/pypi/"+name+"/json", &doc); err != nil {
			return err
		}

		m = registry.Maintenance{
			LatestVersion: doc.Info.Version,
			Deprecated:    doc.Info.Yanked,
		}
		if doc.Info.Yanked {
			m.DeprecationMessage = "latest release yanked"
		}
		if len(doc.URLs) > 0 {
			if t, err := time.Parse(time.RFC3339, doc.URLs[0].UploadTime); err == nil {
				m.LastPublished = t
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
