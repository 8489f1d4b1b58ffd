// Package npm queries the npm registry for package maintenance signals.
package npm

import (
	"context"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/cache"
	"github.com/depsentry/depsentry/pkg/registry"
)

// Client fetches maintenance metadata from the npm registry.
type Client struct {
	*registry.Client
	baseURL string
}

// NewClient creates a client against the public npm registry.
func NewClient(c cache.Cache) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: "https://registry.npmjs.org",
	}
}

// NewClientWithBaseURL creates a client against a custom registry endpoint.
func NewClientWithBaseURL(c cache.Cache, baseURL string) *Client {
	return &Client{
		Client:  registry.NewClient(c, nil),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type packument struct {
	DistTags map[string]string `json:"dist-tags"`
	Time     map[string]string `json:"time"`
	Versions map[string]struct {
		Deprecated string `json:"deprecated"`
	} `json:"versions"`
}

// Fetch returns maintenance signals for a package. Scoped names are passed
// through whole; the registry accepts the slash unencoded.
func (c *Client) Fetch(ctx context.Context, name string) (*registry.Maintenance, error) {
	name = strings.TrimSpace(name)
	key := "registry:npm:" + name

	var m registry.Maintenance
	err := c.Cached(ctx, key, &m, func() error {
		var doc packument
		if err := c.GetJSON(ctx, c.baseURL+"/"+name, &doc); err != nil {
			return err
		}

		latest := doc.DistTags["latest"]
		m = registry.Maintenance{LatestVersion: latest}
		if ts, ok := doc.Time[latest]; ok {
			if t, err := time.Parse(time.RFC3339, ts); err == nil {
				m.LastPublished = t
			}
		}
		if v, ok := doc.Versions[latest]; ok && v.Deprecated != "" {
			m.Deprecated = true
			m.DeprecationMessage = v.Deprecated
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}
