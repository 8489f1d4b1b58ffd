package scan

import (
	"encoding/json"
	"os"
	"time"

	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/vuln"
)

// IgnoreEntry suppresses matching advisories. Exactly one key field is
// normally set; when several are set they all must match. An expired entry
// is inert.
type IgnoreEntry struct {
	// ID matches an advisory id (e.g. a GHSA id).
	ID string `json:"id,omitempty"`

	// CVE matches any of an advisory's CVE aliases.
	CVE string `json:"cve,omitempty"`

	// Package matches a package name; with Version set, only that
	// resolved version.
	Package string `json:"package,omitempty"`
	Version string `json:"version,omitempty"`

	// Expires deactivates the entry after this date. Accepts RFC 3339 or
	// plain YYYY-MM-DD.
	Expires string `json:"expires,omitempty"`

	// Reason documents why the advisory is ignored. Informational only.
	Reason string `json:"reason,omitempty"`
}

// expired reports whether the entry's expiry date has passed.
func (e IgnoreEntry) expired(now time.Time) bool {
	if e.Expires == "" {
		return false
	}
	t, err := time.Parse(time.RFC3339, e.Expires)
	if err != nil {
		t, err = time.Parse("2006-01-02", e.Expires)
	}
	if err != nil {
		// Unparseable dates keep the entry active rather than silently
		// reviving an advisory the user meant to suppress.
		return false
	}
	return now.After(t)
}

// matches reports whether the entry suppresses adv for the given package.
func (e IgnoreEntry) matches(pkg, version string, adv vuln.UnifiedAdvisory, now time.Time) bool {
	if e.expired(now) {
		return false
	}
	if e.ID == "" && e.CVE == "" && e.Package == "" {
		return false
	}
	if e.ID != "" && e.ID != adv.ID {
		return false
	}
	if e.CVE != "" {
		found := false
		for _, cve := range adv.CVEIDs {
			if cve == e.CVE {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if e.Package != "" {
		if e.Package != pkg {
			return false
		}
		if e.Version != "" && e.Version != version {
			return false
		}
	}
	return true
}

// IgnoreList filters advisories out of a scan result.
type IgnoreList struct {
	Entries []IgnoreEntry `json:"ignore"`
}

// LoadIgnoreFile reads a JSON ignore list from path.
func LoadIgnoreFile(path string) (*IgnoreList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidIgnore, err, "reading ignore file %s", path)
	}
	var list IgnoreList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidIgnore, err, "parsing ignore file %s", path)
	}
	return &list, nil
}

// Filter removes suppressed advisories from byPackage in place. Versions
// supplies the resolved versions per package name for package@version
// entries; an advisory is kept only if no entry matches it for every
// resolved version. Package entries left with zero advisories are removed
// entirely, never kept as empty lists.
func (l *IgnoreList) Filter(byPackage map[string][]vuln.UnifiedAdvisory, versions map[string][]string) {
	if l == nil || len(l.Entries) == 0 {
		return
	}
	now := time.Now()

	for pkg, advisories := range byPackage {
		kept := advisories[:0]
		for _, adv := range advisories {
			if !l.suppressed(pkg, versions[pkg], adv, now) {
				kept = append(kept, adv)
			}
		}
		if len(kept) == 0 {
			delete(byPackage, pkg)
		} else {
			byPackage[pkg] = kept
		}
	}
}

// suppressed reports whether any entry matches adv across all resolved
// versions of pkg. Version-specific entries only suppress when every
// resolved version is covered, since advisories are keyed per package.
func (l *IgnoreList) suppressed(pkg string, versions []string, adv vuln.UnifiedAdvisory, now time.Time) bool {
	if len(versions) == 0 {
		versions = []string{""}
	}
	for _, v := range versions {
		matched := false
		for _, e := range l.Entries {
			if e.matches(pkg, v, adv, now) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
