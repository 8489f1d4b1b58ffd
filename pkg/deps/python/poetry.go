package python

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/execx"
)

const (
	pyprojectName  = "pyproject.toml"
	poetryLockName = "poetry.lock"
)

// Poetry is the Poetry ecosystem provider.
type Poetry struct{}

func (Poetry) ID() string                   { return "poetry" }
func (Poetry) Ecosystem() deps.Ecosystem    { return deps.EcosystemPyPI }
func (Poetry) SupportedManifests() []string { return []string{pyprojectName} }
func (Poetry) SupportedLockfiles() []string { return []string{poetryLockName} }

// Detect matches directories with poetry.lock, or a pyproject.toml whose
// content carries a poetry marker (a [tool.poetry] table or a poetry
// build backend). A pyproject without either is left for lower-precedence
// providers.
func (p Poetry) Detect(dir string) *deps.Detection {
	det := &deps.Detection{
		ProviderID: p.ID(),
		Ecosystem:  p.Ecosystem(),
		Variant:    "poetry",
	}
	if fileExists(filepath.Join(dir, poetryLockName)) {
		det.Confidence = deps.ConfidenceLockfile
		return det
	}

	raw, err := os.ReadFile(filepath.Join(dir, pyprojectName))
	if err != nil {
		return nil
	}
	content := string(raw)
	if strings.Contains(content, "[tool.poetry") {
		det.Confidence = deps.ConfidenceManifest
		return det
	}
	if strings.Contains(content, "poetry.core.masonry") || strings.Contains(content, `"poetry-core"`) {
		det.Confidence = deps.ConfidenceDeclared
		return det
	}
	return nil
}

// EnsureLockfile maps the policy flags onto poetry commands.
func (p Poetry) EnsureLockfile(ctx context.Context, dir string, opts deps.LockfileOptions) error {
	runner := opts.Runner
	if runner == nil {
		runner = execx.System{}
	}
	hasLock := fileExists(filepath.Join(dir, poetryLockName))

	switch {
	case opts.ForceRefresh, opts.CreateIfMissing && !hasLock:
		return runPoetry(ctx, runner, dir, "lock")
	case opts.ForceValidate, opts.ValidateIfPresent && hasLock:
		return runPoetry(ctx, runner, dir, "check", "--lock")
	}
	return nil
}

func runPoetry(ctx context.Context, runner execx.Runner, dir string, args ...string) error {
	res, err := runner.Run(ctx, dir, "poetry", args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLockfileTool, err,
			"poetry %s failed: %s", strings.Join(args, " "), strings.TrimSpace(res.Stderr))
	}
	return nil
}

// GatherDependencies prefers poetry.lock over pyproject.toml.
func (p Poetry) GatherDependencies(dir string, opts deps.GatherOptions) ([]deps.Dependency, error) {
	if opts.StandaloneLockfile != "" {
		raw, err := os.ReadFile(opts.StandaloneLockfile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", opts.StandaloneLockfile)
		}
		return ParseLock(raw, opts.IncludeDev)
	}

	if raw, err := os.ReadFile(filepath.Join(dir, poetryLockName)); err == nil {
		list, parseErr := ParseLock(raw, opts.IncludeDev)
		if parseErr == nil {
			return list, nil
		}
		if list, err := p.manifestDependencies(dir, opts.IncludeDev); err == nil {
			return list, nil
		}
		return nil, parseErr
	}

	return p.manifestDependencies(dir, opts.IncludeDev)
}

func (p Poetry) manifestDependencies(dir string, includeDev bool) ([]deps.Dependency, error) {
	raw, err := os.ReadFile(filepath.Join(dir, pyprojectName))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", pyprojectName)
	}
	return ParseManifest(raw, includeDev)
}

// ParseLock parses poetry.lock content into a flat dependency list.
// Git- and path-sourced packages are excluded; dev entries (the "dev"
// category, or lock v2 groups without "main") are included iff includeDev.
func ParseLock(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var lock poetryLockFile
	if err := toml.Unmarshal(raw, &lock); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed poetry.lock")
	}

	var out []deps.Dependency
	for _, pkg := range lock.Packages {
		if pkg.Source.Type == "git" || pkg.Source.Type == "directory" || pkg.Source.Type == "file" {
			continue
		}
		if isDevPackage(pkg) && !includeDev {
			continue
		}
		out = append(out, deps.Dependency{
			Name:      normalize(pkg.Name),
			Version:   pkg.Version,
			Ecosystem: deps.EcosystemPyPI,
		})
	}
	return deps.Dedupe(out), nil
}

func isDevPackage(pkg poetryPackage) bool {
	if pkg.Category == "dev" {
		return true
	}
	return len(pkg.Groups) > 0 && !slices.Contains(pkg.Groups, "main")
}

type poetryLockFile struct {
	Packages []poetryPackage `toml:"package"`
}

type poetryPackage struct {
	Name     string       `toml:"name"`
	Version  string       `toml:"version"`
	Category string       `toml:"category"`
	Groups   []string     `toml:"groups"`
	Source   poetrySource `toml:"source"`
}

type poetrySource struct {
	Type string `toml:"type"`
}

// ParseManifest parses pyproject.toml into a direct-dependency list. Both
// the poetry-native tables and PEP 621 [project] dependencies are read;
// declared constraints are kept verbatim as the version.
func ParseManifest(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var project pyprojectFile
	if err := toml.Unmarshal(raw, &project); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "malformed pyproject.toml")
	}

	var out []deps.Dependency
	out = appendPoetryTable(out, project.Tool.Poetry.Dependencies)
	for _, req := range project.Project.Dependencies {
		if name, version, ok := splitRequirement(req); ok {
			out = append(out, deps.Dependency{Name: name, Version: version, Ecosystem: deps.EcosystemPyPI})
		}
	}

	if includeDev {
		out = appendPoetryTable(out, project.Tool.Poetry.DevDependencies)
		groups := make([]string, 0, len(project.Tool.Poetry.Group))
		for g := range project.Tool.Poetry.Group {
			groups = append(groups, g)
		}
		sort.Strings(groups)
		for _, g := range groups {
			out = appendPoetryTable(out, project.Tool.Poetry.Group[g].Dependencies)
		}
	}

	return deps.Dedupe(out), nil
}

// appendPoetryTable flattens one poetry dependency table. Values are either
// a constraint string or a table with a version key; path and git entries
// have no auditable registry version and are skipped, as is the python
// version constraint itself.
func appendPoetryTable(out []deps.Dependency, table map[string]any) []deps.Dependency {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if normalize(name) == "python" {
			continue
		}
		var version string
		switch v := table[name].(type) {
		case string:
			version = v
		case map[string]any:
			if _, local := v["path"]; local {
				continue
			}
			if _, fromGit := v["git"]; fromGit {
				continue
			}
			version, _ = v["version"].(string)
		default:
			continue
		}
		out = append(out, deps.Dependency{
			Name:      normalize(name),
			Version:   version,
			Ecosystem: deps.EcosystemPyPI,
		})
	}
	return out
}

type pyprojectFile struct {
	Project struct {
		Name         string   `toml:"name"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name            string                 `toml:"name"`
			Dependencies    map[string]any         `toml:"dependencies"`
			DevDependencies map[string]any         `toml:"dev-dependencies"`
			Group           map[string]poetryGroup `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

type poetryGroup struct {
	Dependencies map[string]any `toml:"dependencies"`
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var _ deps.Provider = Poetry{}
