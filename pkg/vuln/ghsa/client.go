// Package ghsa implements the per-package vulnerability source backed by
// the GitHub security advisory GraphQL API.
//
// The API has no batch endpoint: one request per package name, answered
// with every known advisory for that name regardless of version. Only the
// first page of results is consumed.
package ghsa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/httputil"
	"github.com/depsentry/depsentry/pkg/vuln"
)

const (
	defaultEndpoint = "https://api.github.com/graphql"
	httpTimeout     = 30 * time.Second
	pageSize        = 100
)

const vulnerabilitiesQuery = `query($ecosystem: SecurityAdvisoryEcosystem!, $package: String!, $first: Int!) {
  securityVulnerabilities(ecosystem: $ecosystem, package: $package, first: $first) {
    nodes {
      vulnerableVersionRange
      firstPatchedVersion { identifier }
      advisory {
        ghsaId
        summary
        description
        severity
        references { url }
        identifiers { type value }
      }
    }
  }
}`

// Client queries the GitHub advisory database. It implements
// [vuln.PackageSource].
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

// NewClient creates an authenticated client. The token is required; the
// GraphQL API rejects anonymous requests.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "GitHub token required for advisory queries (set GITHUB_TOKEN)")
	}
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		endpoint: defaultEndpoint,
		token:    token,
	}, nil
}

// NewClientWithEndpoint creates a client against a custom endpoint.
func NewClientWithEndpoint(token, endpoint string) (*Client, error) {
	c, err := NewClient(token)
	if err != nil {
		return nil, err
	}
	c.endpoint = endpoint
	return c, nil
}

// Name identifies this source in logs and advisory provenance.
func (c *Client) Name() string { return vuln.SourceGitHub }

// QueryPackage fetches all advisories known for a package name. The
// caller range-filters against resolved versions; the raw
// vulnerableVersionRange is carried on each advisory for that purpose.
func (c *Client) QueryPackage(ctx context.Context, ecosystem deps.Ecosystem, name string) ([]vuln.Advisory, error) {
	eco, ok := graphqlEcosystem(ecosystem)
	if !ok {
		return nil, nil
	}

	payload := graphqlRequest{
		Query: vulnerabilitiesQuery,
		Variables: map[string]any{
			"ecosystem": eco,
			"package":   name,
			"first":     pageSize,
		},
	}

	var resp graphqlResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("github advisory query for %s: %s", name, resp.Errors[0].Message)
	}

	nodes := resp.Data.SecurityVulnerabilities.Nodes
	advisories := make([]vuln.Advisory, 0, len(nodes))
	for _, n := range nodes {
		advisories = append(advisories, toAdvisory(n))
	}
	return advisories, nil
}

func (c *Client) post(ctx context.Context, payload graphqlRequest, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("github advisory request: %w", err)}
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return errors.New(errors.ErrCodeUnauthorized, "GitHub rejected the advisory query (status %d)", resp.StatusCode)
		}
		if err := httputil.CheckResponse(resp); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(v)
	})
}

// graphqlEcosystem maps internal ecosystem names onto the
// SecurityAdvisoryEcosystem enum. Unsupported ecosystems return ok=false
// and are skipped rather than queried with a guessed value.
func graphqlEcosystem(e deps.Ecosystem) (string, bool) {
	switch e {
	case deps.EcosystemNPM:
		return "NPM", true
	case deps.EcosystemGo:
		return "GO", true
	case deps.EcosystemPyPI:
		return "PIP", true
	}
	return "", false
}

func toAdvisory(n vulnerabilityNode) vuln.Advisory {
	adv := vuln.Advisory{
		ID:              n.Advisory.GHSAID,
		Summary:         n.Advisory.Summary,
		Details:         n.Advisory.Description,
		Severity:        vuln.ParseSeverity(n.Advisory.Severity),
		VulnerableRange: n.VulnerableVersionRange,
		Source:          vuln.SourceGitHub,
	}
	if n.FirstPatchedVersion != nil {
		adv.FirstPatchedVersion = n.FirstPatchedVersion.Identifier
	}
	for _, ref := range n.Advisory.References {
		adv.References = append(adv.References, ref.URL)
	}
	for _, id := range n.Advisory.Identifiers {
		if strings.EqualFold(id.Type, "CVE") {
			adv.CVEIDs = append(adv.CVEIDs, id.Value)
		}
	}
	return adv
}
