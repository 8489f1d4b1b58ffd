package npm

import (
	"encoding/json"
	"sort"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

// ParseManifest parses package.json into a direct-dependency list. The
// declared range string is kept verbatim as the version. Local-path,
// workspace, and git-sourced entries are excluded.
func ParseManifest(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var pkg packageFile
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed package.json")
	}

	out := collect(nil, pkg.Dependencies)
	if includeDev {
		out = collect(out, pkg.DevDependencies)
	}
	return deps.Dedupe(out), nil
}

func collect(out []deps.Dependency, m map[string]string) []deps.Dependency {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rng := m[name]
		if externalSource(rng) {
			continue
		}
		out = append(out, deps.Dependency{
			Name:      name,
			Version:   rng,
			Ecosystem: deps.EcosystemNPM,
		})
	}
	return out
}

type packageFile struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	PackageManager  string            `json:"packageManager"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}
