// Package golang implements the Go modules ecosystem provider.
//
// go.sum is treated as the lock source: it records the full module closure,
// one line per (module, version, hash). go.mod is the manifest fallback,
// yielding direct requirements only.
package golang

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/execx"
)

const (
	manifestName = "go.mod"
	lockName     = "go.sum"
)

// Provider is the Go modules ecosystem provider.
type Provider struct{}

func (Provider) ID() string                   { return "gomod" }
func (Provider) Ecosystem() deps.Ecosystem    { return deps.EcosystemGo }
func (Provider) SupportedManifests() []string { return []string{manifestName} }
func (Provider) SupportedLockfiles() []string { return []string{lockName} }

// Detect matches directories containing go.mod.
func (p Provider) Detect(dir string) *deps.Detection {
	if !fileExists(filepath.Join(dir, manifestName)) {
		return nil
	}
	det := &deps.Detection{
		ProviderID: p.ID(),
		Ecosystem:  p.Ecosystem(),
		Confidence: deps.ConfidenceManifest,
	}
	if fileExists(filepath.Join(dir, lockName)) {
		det.Confidence = deps.ConfidenceLockfile
	}
	return det
}

// EnsureLockfile regenerates go.sum via `go mod tidy` and validates it via
// `go mod verify`.
func (p Provider) EnsureLockfile(ctx context.Context, dir string, opts deps.LockfileOptions) error {
	runner := opts.Runner
	if runner == nil {
		runner = execx.System{}
	}
	hasLock := fileExists(filepath.Join(dir, lockName))

	switch {
	case opts.ForceRefresh, opts.CreateIfMissing && !hasLock:
		return runGo(ctx, runner, dir, "mod", "tidy")
	case opts.ForceValidate, opts.ValidateIfPresent && hasLock:
		return runGo(ctx, runner, dir, "mod", "verify")
	}
	return nil
}

func runGo(ctx context.Context, runner execx.Runner, dir string, args ...string) error {
	res, err := runner.Run(ctx, dir, "go", args...)
	if err != nil {
		return errors.Wrap(errors.ErrCodeLockfileTool, err,
			"go %s failed: %s", strings.Join(args, " "), strings.TrimSpace(res.Stderr))
	}
	return nil
}

// GatherDependencies prefers go.sum over go.mod. Go has no dev-dependency
// notion, so IncludeDev has no effect here.
func (p Provider) GatherDependencies(dir string, opts deps.GatherOptions) ([]deps.Dependency, error) {
	if opts.StandaloneLockfile != "" {
		raw, err := os.ReadFile(opts.StandaloneLockfile)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", opts.StandaloneLockfile)
		}
		return ParseLock(raw, opts.IncludeDev)
	}

	if raw, err := os.ReadFile(filepath.Join(dir, lockName)); err == nil {
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

func (p Provider) manifestDependencies(dir string, includeDev bool) ([]deps.Dependency, error) {
	raw, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", manifestName)
	}
	return ParseManifest(raw, includeDev)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

var _ deps.Provider = Provider{}
