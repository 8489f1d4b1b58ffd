package ghsa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/vuln"
)

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := NewClient("")
	if err == nil {
		t.Fatal("empty token must be rejected")
	}
	if !errors.Is(err, errors.ErrCodeUnauthorized) {
		t.Errorf("code = %q, want UNAUTHORIZED", errors.GetCode(err))
	}
}

func TestClient_QueryPackage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		var req graphqlRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Variables["ecosystem"] != "NPM" || req.Variables["package"] != "lodash" {
			t.Errorf("variables = %v", req.Variables)
		}

		var resp graphqlResponse
		resp.Data.SecurityVulnerabilities.Nodes = []vulnerabilityNode{{
			VulnerableVersionRange: "< 4.17.21",
			FirstPatchedVersion:    &patchedVersion{Identifier: "4.17.21"},
			Advisory: advisoryNode{
				GHSAID:      "GHSA-35jh-r3h4-6jhm",
				Summary:     "Command injection in lodash",
				Description: "lodash versions prior to 4.17.21 are vulnerable",
				Severity:    "HIGH",
				References:  []reference{{URL: "https://example.com/advisory"}},
				Identifiers: []identifier{
					{Type: "GHSA", Value: "GHSA-35jh-r3h4-6jhm"},
					{Type: "CVE", Value: "CVE-2021-23337"},
				},
			},
		}}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c, err := NewClientWithEndpoint("test-token", server.URL)
	if err != nil {
		t.Fatalf("NewClientWithEndpoint: %v", err)
	}

	advisories, err := c.QueryPackage(context.Background(), deps.EcosystemNPM, "lodash")
	if err != nil {
		t.Fatalf("QueryPackage failed: %v", err)
	}
	if len(advisories) != 1 {
		t.Fatalf("got %d advisories, want 1", len(advisories))
	}

	adv := advisories[0]
	if adv.ID != "GHSA-35jh-r3h4-6jhm" {
		t.Errorf("id = %s", adv.ID)
	}
	if adv.Severity != vuln.SeverityHigh {
		t.Errorf("severity = %s, want high", adv.Severity)
	}
	if adv.VulnerableRange != "< 4.17.21" {
		t.Errorf("vulnerableRange = %q", adv.VulnerableRange)
	}
	if adv.FirstPatchedVersion != "4.17.21" {
		t.Errorf("firstPatchedVersion = %q", adv.FirstPatchedVersion)
	}
	if len(adv.CVEIDs) != 1 || adv.CVEIDs[0] != "CVE-2021-23337" {
		t.Errorf("cveIds = %v, GHSA identifiers must not be treated as CVEs", adv.CVEIDs)
	}
	if adv.Source != vuln.SourceGitHub {
		t.Errorf("source = %s", adv.Source)
	}
}

func TestClient_QueryPackage_GraphQLError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(graphqlResponse{Errors: []graphqlError{{Message: "rate limit exceeded"}}})
	}))
	defer server.Close()

	c, _ := NewClientWithEndpoint("test-token", server.URL)
	_, err := c.QueryPackage(context.Background(), deps.EcosystemNPM, "lodash")
	if err == nil {
		t.Fatal("GraphQL errors must surface as an error")
	}
}

func TestClient_QueryPackage_UnsupportedEcosystem(t *testing.T) {
	c, _ := NewClientWithEndpoint("test-token", "http://unreachable.invalid")
	advisories, err := c.QueryPackage(context.Background(), deps.Ecosystem("RubyGems"), "rails")
	if err != nil {
		t.Fatalf("unsupported ecosystem must be skipped, not queried: %v", err)
	}
	if advisories != nil {
		t.Errorf("advisories = %v, want nil", advisories)
	}
}

func TestGraphqlEcosystem(t *testing.T) {
	tests := []struct {
		in   deps.Ecosystem
		want string
		ok   bool
	}{
		{deps.EcosystemNPM, "NPM", true},
		{deps.EcosystemGo, "GO", true},
		{deps.EcosystemPyPI, "PIP", true},
		{deps.Ecosystem("Maven"), "", false},
	}
	for _, tt := range tests {
		got, ok := graphqlEcosystem(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("graphqlEcosystem(%s) = %q, %v", tt.in, got, ok)
		}
	}
}
