// Package vuln defines the advisory data model and the query orchestration
// that cross-references dependencies against vulnerability data sources.
//
// The package is source-agnostic: concrete integrations (OSV, the GitHub
// security advisory API) live in subpackages and are plugged into the
// Orchestrator through the Source interfaces defined here.
package vuln

import "strings"

// Severity is a normalized advisory severity level.
type Severity string

// Severity levels ordered from least to most severe.
const (
	SeverityUnknown  Severity = "unknown"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns an integer rank for comparison (low=1, critical=4,
// unknown=0). Used by the merge step to keep the highest severity when
// two sources disagree.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity normalizes a severity string case-insensitively.
// "moderate" (GitHub's spelling) maps to medium; anything unrecognized
// maps to unknown rather than failing, since sources routinely omit or
// invent severity labels.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium", "moderate":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityUnknown
	}
}

// Advisory is one vulnerability record as reported by a single source.
type Advisory struct {
	ID                  string   `json:"id"`
	Severity            Severity `json:"severity"`
	Summary             string   `json:"summary"`
	Details             string   `json:"details,omitempty"`
	References          []string `json:"references,omitempty"`
	FirstPatchedVersion string   `json:"firstPatchedVersion,omitempty"`
	CVEIDs              []string `json:"cveIds,omitempty"`
	VulnerableRange     string   `json:"vulnerableRange,omitempty"`

	// Source names the reporting data source ("osv" or "github").
	// After merging, Sources on UnifiedAdvisory supersedes this field.
	Source string `json:"source,omitempty"`
}

// UnifiedAdvisory is the merge output for one vulnerability: an Advisory
// plus the set of sources that reported it, serialized as a sorted
// comma-joined string ("github,osv").
type UnifiedAdvisory struct {
	ID                  string   `json:"id"`
	Severity            Severity `json:"severity"`
	Summary             string   `json:"summary"`
	Details             string   `json:"details,omitempty"`
	References          []string `json:"references,omitempty"`
	FirstPatchedVersion string   `json:"firstPatchedVersion,omitempty"`
	CVEIDs              []string `json:"cveIds,omitempty"`
	VulnerableRange     string   `json:"vulnerableRange,omitempty"`
	Sources             string   `json:"sources"`
}

// Source name constants used in Advisory.Source and UnifiedAdvisory.Sources.
const (
	SourceOSV    = "osv"
	SourceGitHub = "github"
)
