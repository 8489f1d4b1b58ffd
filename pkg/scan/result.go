package scan

import (
	"time"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/registry"
	"github.com/depsentry/depsentry/pkg/vuln"
)

// Result is the outcome of one scan. It is constructed fresh per
// invocation and never persisted.
//
// AdvisoriesByPackage never contains an entry with an empty advisory
// list; packages whose advisories were all filtered away are removed
// entirely.
type Result struct {
	ID                  string                            `json:"id"`
	Detection           deps.Detection                    `json:"detection"`
	Deps                []deps.Dependency                 `json:"deps"`
	AdvisoriesByPackage map[string][]vuln.UnifiedAdvisory `json:"advisoriesByPackage"`
	Maintenance         map[string]registry.Maintenance   `json:"maintenance,omitempty"`
	ScanDuration        time.Duration                     `json:"scanDuration"`
}

// VulnerablePackages returns the number of packages with at least one
// surviving advisory.
func (r *Result) VulnerablePackages() int {
	return len(r.AdvisoriesByPackage)
}

// TotalVulnerabilities returns the advisory count across all packages.
func (r *Result) TotalVulnerabilities() int {
	total := 0
	for _, advisories := range r.AdvisoriesByPackage {
		total += len(advisories)
	}
	return total
}
