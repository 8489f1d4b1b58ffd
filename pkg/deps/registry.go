package deps

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/depsentry/depsentry/pkg/errors"
)

// Registry holds providers in a fixed precedence order. Detection returns
// the first provider whose Detect matches; ties between competing manifests
// in one directory are broken by this ordering, never by confidence.
type Registry struct {
	providers []Provider
}

// NewRegistry creates a registry with the given precedence order.
func NewRegistry(providers ...Provider) *Registry {
	return &Registry{providers: providers}
}

// Providers returns the registered providers in precedence order.
func (r *Registry) Providers() []Provider {
	return r.providers
}

// Target is the resolved scan input: the project directory plus, when the
// caller passed a lock file directly, that file's own path so the provider
// parses it instead of re-discovering one. ProviderID names the provider
// whose lock file matched; directory detection cannot recover it afterwards
// since the file may carry a prefixed temporary name.
type Target struct {
	Dir        string
	Lockfile   string
	ProviderID string
}

// ResolveTarget classifies path as a directory, a known manifest, or a
// standalone lock file. Lock files are matched by exact name or by suffix,
// tolerating random-prefixed temporary names (e.g. "tmp-1234-package-lock.json").
// Unsupported file names fail with an error listing all recognized names.
func (r *Registry) ResolveTarget(path string) (Target, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Target{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot access %s", path)
	}
	if info.IsDir() {
		return Target{Dir: path}, nil
	}

	base := filepath.Base(path)
	for _, p := range r.providers {
		for _, m := range p.SupportedManifests() {
			if base == m {
				return Target{Dir: filepath.Dir(path)}, nil
			}
		}
		for _, l := range p.SupportedLockfiles() {
			if matchesLockfileName(base, l) {
				return Target{Dir: filepath.Dir(path), Lockfile: path, ProviderID: p.ID()}, nil
			}
		}
	}

	return Target{}, errors.New(errors.ErrCodeUnsupportedManifest,
		"unsupported file %q (recognized: %s)", base, strings.Join(r.RecognizedFiles(), ", "))
}

// matchesLockfileName reports whether base is the lock file name itself or
// a prefixed variant of it. The prefix must end at a separator so that
// names merely sharing the suffix (e.g. "logo.sum" vs "go.sum") do not match.
func matchesLockfileName(base, name string) bool {
	if base == name {
		return true
	}
	for _, sep := range []string{"-", "_", "."} {
		if strings.HasSuffix(base, sep+name) {
			return true
		}
	}
	return false
}

// Detect runs providers in precedence order and returns the first match.
func (r *Registry) Detect(dir string) (Provider, *Detection, error) {
	for _, p := range r.providers {
		if det := p.Detect(dir); det != nil {
			return p, det, nil
		}
	}
	return nil, nil, errors.New(errors.ErrCodeNoProvider, "no supported ecosystem detected in %s", dir)
}

// DetectTarget resolves the provider for a target. A standalone lock file
// already identified its provider during target resolution, so it is used
// directly; directories and manifests go through directory detection.
func (r *Registry) DetectTarget(target Target) (Provider, *Detection, error) {
	if target.Lockfile == "" {
		return r.Detect(target.Dir)
	}
	p, ok := r.ProviderFor(target.ProviderID)
	if !ok {
		return nil, nil, errors.New(errors.ErrCodeNoProvider, "no provider registered for %q", target.ProviderID)
	}
	return p, &Detection{
		ProviderID: p.ID(),
		Ecosystem:  p.Ecosystem(),
		Confidence: ConfidenceLockfile,
	}, nil
}

// ProviderFor returns the registered provider with the given id.
func (r *Registry) ProviderFor(id string) (Provider, bool) {
	for _, p := range r.providers {
		if p.ID() == id {
			return p, true
		}
	}
	return nil, false
}

// RecognizedFiles returns the sorted union of all manifest and lock file
// names known to the registry. Used in error messages and by the CLI's
// manifest listing.
func (r *Registry) RecognizedFiles() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range r.providers {
		for _, n := range append(p.SupportedManifests(), p.SupportedLockfiles()...) {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}
