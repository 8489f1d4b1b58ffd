// Package osv implements the bulk vulnerability source backed by the
// OSV.dev API. Batches go to /v1/querybatch; the per-dependency fallback
// uses /v1/query.
package osv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/httputil"
	"github.com/depsentry/depsentry/pkg/vuln"
)

const (
	defaultBaseURL = "https://api.osv.dev/v1"
	httpTimeout    = 30 * time.Second
)

// Client queries the OSV API. It implements [vuln.BulkSource].
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client against the public OSV API.
func NewClient() *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: defaultBaseURL,
	}
}

// NewClientWithBaseURL creates a client against a custom endpoint.
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// Name identifies this source in logs. Advisory provenance is decided
// per record, see toAdvisory.
func (c *Client) Name() string { return vuln.SourceOSV }

// QueryBatch submits one batch and maps the response positionally back to
// the request: results[i] belongs to dependencies[i]. OSV guarantees a
// same-length, same-order results array.
func (c *Client) QueryBatch(ctx context.Context, dependencies []deps.Dependency) ([][]vuln.Advisory, error) {
	req := batchRequest{Queries: make([]query, len(dependencies))}
	for i, dep := range dependencies {
		req.Queries[i] = query{
			Package: pkg{Ecosystem: string(dep.Ecosystem), Name: dep.Name},
			Version: dep.Version,
		}
	}

	var resp batchResponse
	if err := c.post(ctx, c.baseURL+"/querybatch", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(dependencies) {
		return nil, fmt.Errorf("querybatch returned %d results for %d queries", len(resp.Results), len(dependencies))
	}

	advisories := make([][]vuln.Advisory, len(dependencies))
	for i, r := range resp.Results {
		for _, v := range r.Vulns {
			advisories[i] = append(advisories[i], toAdvisory(v))
		}
	}
	return advisories, nil
}

// Query answers for a single dependency, used when a whole batch failed.
func (c *Client) Query(ctx context.Context, dep deps.Dependency) ([]vuln.Advisory, error) {
	req := query{
		Package: pkg{Ecosystem: string(dep.Ecosystem), Name: dep.Name},
		Version: dep.Version,
	}

	var resp queryResponse
	if err := c.post(ctx, c.baseURL+"/query", req, &resp); err != nil {
		return nil, err
	}

	advisories := make([]vuln.Advisory, 0, len(resp.Vulns))
	for _, v := range resp.Vulns {
		advisories = append(advisories, toAdvisory(v))
	}
	return advisories, nil
}

// post sends a JSON request with retry on 429/5xx responses.
func (c *Client) post(ctx context.Context, url string, payload, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return httputil.RetryWithBackoff(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("osv request: %w", err)}
		}
		defer resp.Body.Close()

		if err := httputil.CheckResponse(resp); err != nil {
			return err
		}
		return json.NewDecoder(resp.Body).Decode(v)
	})
}

// toAdvisory converts one OSV record to the normalized advisory shape.
// Records with GHSA ids originate from the GitHub advisory database, which
// OSV aggregates, so their provenance is recorded as the github source.
func toAdvisory(v vulnerability) vuln.Advisory {
	adv := vuln.Advisory{
		ID:       v.ID,
		Summary:  v.Summary,
		Details:  v.Details,
		Severity: severityOf(v),
		Source:   vuln.SourceOSV,
	}
	if strings.HasPrefix(v.ID, "GHSA-") {
		adv.Source = vuln.SourceGitHub
	}

	for _, alias := range v.Aliases {
		if strings.HasPrefix(alias, "CVE-") {
			adv.CVEIDs = append(adv.CVEIDs, alias)
		}
	}
	for _, ref := range v.References {
		adv.References = append(adv.References, ref.URL)
	}
	adv.FirstPatchedVersion = firstFixed(v.Affected)
	return adv
}

// severityOf prefers the top-level database_specific label and falls back
// to the per-affected-entry one. CVSS vectors are not interpreted.
func severityOf(v vulnerability) vuln.Severity {
	if s := vuln.ParseSeverity(v.DatabaseSpecific.Severity); s != vuln.SeverityUnknown {
		return s
	}
	for _, a := range v.Affected {
		if s := vuln.ParseSeverity(a.DatabaseSpecific.Severity); s != vuln.SeverityUnknown {
			return s
		}
	}
	return vuln.SeverityUnknown
}

// firstFixed returns the first "fixed" event across affected ranges.
func firstFixed(entries []affected) string {
	for _, a := range entries {
		for _, r := range a.Ranges {
			for _, e := range r.Events {
				if e.Fixed != "" {
					return e.Fixed
				}
			}
		}
	}
	return ""
}
