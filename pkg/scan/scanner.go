// Package scan wires the full pipeline: target resolution, ecosystem
// detection, lock-file handling, dependency extraction, vulnerability
// querying, merge, ignore filtering, and the optional maintenance check.
package scan

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/vuln"
)

// Scanner runs scans against a fixed provider registry and set of
// vulnerability sources. It is stateless apart from its collaborators;
// multiple goroutines can share one Scanner with different options.
type Scanner struct {
	Registry    *deps.Registry
	Bulk        vuln.BulkSource
	Package     vuln.PackageSource
	Maintenance map[deps.Ecosystem]MaintenanceClient
	Logger      *log.Logger
}

// NewScanner creates a scanner. Either vulnerability source may be nil
// and is then skipped; a nil logger means log.Default().
func NewScanner(registry *deps.Registry, bulk vuln.BulkSource, pkg vuln.PackageSource, logger *log.Logger) *Scanner {
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{
		Registry: registry,
		Bulk:     bulk,
		Package:  pkg,
		Logger:   logger,
	}
}

// Scan runs the pipeline for path, which may be a project directory, a
// manifest file, or a standalone lock file.
func (s *Scanner) Scan(ctx context.Context, path string, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = s.Logger
	}
	start := time.Now()

	target, err := s.Registry.ResolveTarget(path)
	if err != nil {
		return nil, err
	}

	provider, detection, err := s.Registry.DetectTarget(target)
	if err != nil {
		return nil, err
	}
	opts.Hooks.OnDetect(*detection)
	logger.Debug("detected ecosystem",
		"provider", detection.ProviderID,
		"confidence", detection.Confidence)

	// Lock-file handling only applies when scanning a project directory;
	// a standalone lock file is parsed exactly as given.
	if target.Lockfile == "" && opts.LockfileMode != LockfileNone {
		if err := provider.EnsureLockfile(ctx, target.Dir, lockfileOptions(opts)); err != nil {
			return nil, err
		}
	}

	dependencies, err := provider.GatherDependencies(target.Dir, deps.GatherOptions{
		IncludeDev:         opts.IncludeDev,
		StandaloneLockfile: target.Lockfile,
	})
	if err != nil {
		return nil, err
	}
	dependencies = deps.Dedupe(dependencies)
	opts.Hooks.OnDependenciesGathered(len(dependencies))
	logger.Info("gathered dependencies",
		"count", len(dependencies),
		"ecosystem", provider.Ecosystem())

	orchestrator := &vuln.Orchestrator{
		Bulk:        s.Bulk,
		Package:     s.Package,
		Concurrency: opts.Concurrency,
		Logger:      logger,
	}
	byPackage, err := orchestrator.Query(ctx, dependencies, vuln.Progress{
		BatchDone:   opts.Hooks.OnBatchComplete,
		PackageDone: opts.Hooks.OnPackageChecked,
	})
	if err != nil {
		return nil, err
	}

	if opts.IgnoreFile != "" {
		ignoreList, err := LoadIgnoreFile(opts.IgnoreFile)
		if err != nil {
			return nil, err
		}
		ignoreList.Filter(byPackage, versionsByName(dependencies))
	}

	result := &Result{
		ID:                  uuid.New().String(),
		Detection:           *detection,
		Deps:                dependencies,
		AdvisoriesByPackage: byPackage,
	}

	if opts.CheckMaintenance {
		result.Maintenance = checkMaintenance(ctx, dependencies, s.Maintenance, logger)
	}

	result.ScanDuration = time.Since(start)
	opts.Hooks.OnComplete(result.VulnerablePackages(), result.ScanDuration)
	logger.Info("scan complete",
		"packages", len(dependencies),
		"vulnerable", result.VulnerablePackages(),
		"duration", result.ScanDuration)
	return result, nil
}

// lockfileOptions maps the scan-level mode onto the provider's policy
// flags.
func lockfileOptions(opts Options) deps.LockfileOptions {
	lo := deps.LockfileOptions{Runner: opts.Runner}
	switch opts.LockfileMode {
	case LockfileCheck:
		lo.ValidateIfPresent = true
	case LockfileRefresh:
		lo.ForceRefresh = true
	case LockfileEnforce:
		lo.CreateIfMissing = true
		lo.ForceValidate = true
	}
	return lo
}

func versionsByName(dependencies []deps.Dependency) map[string][]string {
	versions := make(map[string][]string)
	for _, dep := range dependencies {
		versions[dep.Name] = append(versions[dep.Name], dep.Version)
	}
	return versions
}
