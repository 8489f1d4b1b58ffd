package npm

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

// ParseLock parses package-lock.json (or npm-shrinkwrap.json) content into
// a flat dependency list.
//
// Lockfile version 2/3 files carry a "packages" map keyed by install path
// ("node_modules/a", "node_modules/a/node_modules/b"); version 1 files nest
// a "dependencies" tree. Both shapes are handled here. The root entry,
// workspace-internal packages, symlinked packages, and git- or file-sourced
// entries are excluded. Entries differing only in install path or integrity
// metadata collapse to one dependency per (name, version).
func ParseLock(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var lock lockFile
	if err := json.Unmarshal(raw, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed package-lock.json")
	}

	if len(lock.Packages) > 0 {
		return deps.Dedupe(fromPackagesMap(lock.Packages, includeDev)), nil
	}
	return deps.Dedupe(fromV1Tree(lock.Dependencies, includeDev)), nil
}

type lockFile struct {
	Name            string                  `json:"name"`
	LockfileVersion int                     `json:"lockfileVersion"`
	Packages        map[string]lockPackage  `json:"packages"`
	Dependencies    map[string]v1Dependency `json:"dependencies"`
}

type lockPackage struct {
	Version  string `json:"version"`
	Dev      bool   `json:"dev"`
	Optional bool   `json:"optional"`
	Link     bool   `json:"link"`
	Resolved string `json:"resolved"`
}

type v1Dependency struct {
	Version      string                  `json:"version"`
	Dev          bool                    `json:"dev"`
	Dependencies map[string]v1Dependency `json:"dependencies"`
}

// fromPackagesMap flattens the v2/v3 path-keyed map. Keys are sorted so the
// output order is deterministic across parses of identical input.
func fromPackagesMap(packages map[string]lockPackage, includeDev bool) []deps.Dependency {
	keys := make([]string, 0, len(packages))
	for k := range packages {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []deps.Dependency
	for _, key := range keys {
		pkg := packages[key]

		// "" is the root project; paths outside node_modules are workspace
		// members declared in the same lock file.
		idx := strings.LastIndex(key, "node_modules/")
		if key == "" || idx < 0 {
			continue
		}
		if pkg.Link || pkg.Version == "" {
			continue
		}
		if externalSource(pkg.Resolved) {
			continue
		}
		if pkg.Dev && !includeDev {
			continue
		}

		// The final path segment is the package name; scoped names
		// ("@babel/core") stay whole.
		name := key[idx+len("node_modules/"):]
		out = append(out, deps.Dependency{
			Name:      name,
			Version:   pkg.Version,
			Ecosystem: deps.EcosystemNPM,
		})
	}
	return out
}

func fromV1Tree(tree map[string]v1Dependency, includeDev bool) []deps.Dependency {
	var out []deps.Dependency
	var walk func(m map[string]v1Dependency)
	walk = func(m map[string]v1Dependency) {
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			entry := m[name]
			if entry.Dev && !includeDev {
				continue
			}
			if entry.Version != "" && !externalSource(entry.Version) {
				out = append(out, deps.Dependency{
					Name:      name,
					Version:   entry.Version,
					Ecosystem: deps.EcosystemNPM,
				})
			}
			walk(entry.Dependencies)
		}
	}
	walk(tree)
	return out
}

// externalSource reports whether a resolved or version field points at a
// local path or version-control source instead of a registry artifact.
func externalSource(s string) bool {
	for _, prefix := range []string{"file:", "link:", "portal:", "workspace:", "git:", "git+", "github:"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
