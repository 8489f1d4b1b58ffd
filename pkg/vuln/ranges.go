package vuln

import (
	"github.com/Masterminds/semver/v3"

	"github.com/depsentry/depsentry/pkg/deps"
)

// RangeMatches reports whether a resolved version falls inside an
// advisory's vulnerable-range expression.
//
// Evaluation is exact only for npm, whose ranges follow semver constraint
// syntax (">= 2.0.0, < 2.4.1"). Every other ecosystem reports a match
// unconditionally: Go pseudo-versions and PEP 440 specifiers do not parse
// as semver, and over-reporting is preferred to silently dropping a real
// advisory. An empty range also matches, since several sources omit the
// range for advisories that affect all versions.
func RangeMatches(ecosystem deps.Ecosystem, version, vulnerableRange string) bool {
	if ecosystem != deps.EcosystemNPM || vulnerableRange == "" {
		return true
	}

	constraint, err := semver.NewConstraint(vulnerableRange)
	if err != nil {
		return true
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return true
	}
	return constraint.Check(v)
}
