// Package deps defines the dependency model and the ecosystem provider
// contract.
//
// A Provider owns detection and parsing for one package-manager family
// (npm, Go modules, Poetry, pip). Providers are registered in a fixed
// precedence order; the Detector picks exactly one per scan and the scan
// pipeline threads it explicitly from there.
//
// Each provider subpackage (npm, golang, python) exports a Provider value
// plus the pure format parsers for its manifest and lock-file formats.
package deps

import "fmt"

// Ecosystem identifies a package-manager family. Values follow the
// ecosystem names used by the vulnerability sources.
type Ecosystem string

const (
	EcosystemNPM  Ecosystem = "npm"
	EcosystemGo   Ecosystem = "Go"
	EcosystemPyPI Ecosystem = "PyPI"
)

// Dependency is one resolved or declared package. Version is whatever
// string the source file recorded: an exact version when read from a lock
// file, or the declared range verbatim when read from a manifest.
//
// A dependency list is an ordered sequence, not a set. Duplicates with
// different versions are legal (version conflicts in nested installs) and
// are all retained; the equality key for list operations is (Name, Version).
type Dependency struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Ecosystem Ecosystem `json:"ecosystem"`
}

// String returns "name@version" for logging.
func (d Dependency) String() string {
	return d.Name + "@" + d.Version
}

// Key returns the (name, version) identity used for deduplication.
func (d Dependency) Key() string {
	return fmt.Sprintf("%s@%s", d.Name, d.Version)
}

// Confidence describes how an ecosystem detection was inferred.
type Confidence string

const (
	// ConfidenceLockfile means a lock file for the ecosystem was present.
	ConfidenceLockfile Confidence = "lockfile"

	// ConfidenceDeclared means the manifest names its package manager
	// explicitly (e.g., the packageManager field in package.json).
	ConfidenceDeclared Confidence = "declared"

	// ConfidenceManifest means only the manifest's presence matched.
	ConfidenceManifest Confidence = "manifest"
)

// Detection records the chosen provider's identity and how it was inferred.
// It is immutable once produced for a scan.
type Detection struct {
	ProviderID string     `json:"provider"`
	Ecosystem  Ecosystem  `json:"ecosystem"`
	Variant    string     `json:"variant,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// Dedupe returns the list with repeated (name, version) pairs removed,
// preserving first-occurrence order. Conflicting versions of the same name
// survive as separate entries.
func Dedupe(list []Dependency) []Dependency {
	seen := make(map[string]bool, len(list))
	out := make([]Dependency, 0, len(list))
	for _, d := range list {
		if seen[d.Key()] {
			continue
		}
		seen[d.Key()] = true
		out = append(out, d)
	}
	return out
}
