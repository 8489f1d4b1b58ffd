// Package npm implements the JavaScript ecosystem provider.
//
// Detection keys on package.json and the npm lock files; the packageManager
// field, when present, is surfaced as the detection variant. Dependency
// extraction prefers package-lock.json (full transitive closure) and falls
// back to package.json (direct dependencies with declared ranges).
package npm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/execx"
)

const (
	manifestName = "package.json"
	lockName     = "package-lock.json"
	shrinkwrap   = "npm-shrinkwrap.json"
)

// Provider is the npm ecosystem provider.
type Provider struct{}

func (Provider) ID() string                   { return "npm" }
func (Provider) Ecosystem() deps.Ecosystem    { return deps.EcosystemNPM }
func (Provider) SupportedManifests() []string { return []string{manifestName} }
func (Provider) SupportedLockfiles() []string { return []string{lockName, shrinkwrap} }

// Detect matches directories containing package.json or an npm lock file.
// A packageManager field in package.json is recorded as the variant.
func (p Provider) Detect(dir string) *deps.Detection {
	hasLock := fileExists(filepath.Join(dir, lockName)) || fileExists(filepath.Join(dir, shrinkwrap))
	manifest, hasManifest := readManifestMeta(filepath.Join(dir, manifestName))
	if !hasLock && !hasManifest {
		return nil
	}

	det := &deps.Detection{
		ProviderID: p.ID(),
		Ecosystem:  p.Ecosystem(),
		Confidence: deps.ConfidenceManifest,
	}
	if hasLock {
		det.Confidence = deps.ConfidenceLockfile
	}
	if manifest.PackageManager != "" {
		det.Variant, _, _ = strings.Cut(manifest.PackageManager, "@")
		if !hasLock {
			det.Confidence = deps.ConfidenceDeclared
		}
	}
	return det
}

// EnsureLockfile maps the policy flags onto npm commands. Refresh and
// creation use --package-lock-only so no node_modules tree is materialized.
func (p Provider) EnsureLockfile(ctx context.Context, dir string, opts deps.LockfileOptions) error {
	runner := opts.Runner
	if runner == nil {
		runner = execx.System{}
	}
	hasLock := fileExists(filepath.Join(dir, lockName))

	switch {
	case opts.ForceRefresh, opts.CreateIfMissing && !hasLock:
		return runNpm(ctx, runner, dir, "install", "--package-lock-only", "--ignore-scripts")
	case opts.ForceValidate, opts.ValidateIfPresent && hasLock:
		return runNpm(ctx, runner, dir, "ls", "--json")
	}
	return nil
}

func runNpm(ctx context.Context, runner execx.Runner, dir string, args ...string) error {
	res, err := runner.Run(ctx, dir, "npm", args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLockfileTool, err,
			"npm %s failed: %s", strings.Join(args, " "), strings.TrimSpace(res.Stderr))
	}
	return nil
}

// GatherDependencies reads the lock file when available, falling back to
// package.json on lock parse failure unless a standalone lock file was
// requested.
func (p Provider) GatherDependencies(dir string, opts deps.GatherOptions) ([]deps.Dependency, error) {
	if opts.StandaloneLockfile != "" {
		raw, err := os.ReadFile(opts.StandaloneLockfile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", opts.StandaloneLockfile)
		}
		return ParseLock(raw, opts.IncludeDev)
	}

	for _, name := range []string{lockName, shrinkwrap} {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		list, parseErr := ParseLock(raw, opts.IncludeDev)
		if parseErr == nil {
			return list, nil
		}
		// Damaged lock file: fall back to the manifest rather than failing
		// the whole scan.
		if list, err := p.manifestDependencies(dir, opts.IncludeDev); err == nil {
			return list, nil
		}
		return nil, parseErr
	}

	return p.manifestDependencies(dir, opts.IncludeDev)
}

func (p Provider) manifestDependencies(dir string, includeDev bool) ([]deps.Dependency, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", manifestName)
	}
	return ParseManifest(raw, includeDev)
}

type manifestMeta struct {
	PackageManager string `json:"packageManager"`
}

func readManifestMeta(path string) (manifestMeta, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return manifestMeta{}, false
	}
	var m manifestMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		// Present but malformed still counts as a marker; parsing reports
		// the real error later.
		return manifestMeta{}, true
	}
	return m, true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var _ deps.Provider = Provider{}
