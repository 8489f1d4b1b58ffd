package deps

import (
	"context"

	"github.com/depsentry/depsentry/pkg/execx"
)

// LockfileOptions control the external-tool policy gate before parsing.
// Each flag maps to a distinct package-manager command per provider; flag
// combinations a provider does not support are no-ops.
type LockfileOptions struct {
	// ForceRefresh regenerates the lock file even if present.
	ForceRefresh bool

	// ForceValidate verifies the lock file against the manifest and fails
	// the scan on drift.
	ForceValidate bool

	// CreateIfMissing generates a lock file when none exists.
	CreateIfMissing bool

	// ValidateIfPresent verifies an existing lock file but tolerates its
	// absence.
	ValidateIfPresent bool

	// Runner executes the external package-manager binary. Nil means
	// execx.System.
	Runner execx.Runner
}

// GatherOptions control dependency extraction.
type GatherOptions struct {
	// IncludeDev includes development-only dependencies. Default false.
	IncludeDev bool

	// StandaloneLockfile, when non-empty, is the exact lock file to parse
	// instead of discovering one in the directory. With no manifest context
	// a parse failure is fatal rather than recoverable.
	StandaloneLockfile string
}

// Provider owns detection, lock-file policy, and parsing for one ecosystem.
type Provider interface {
	// ID is the stable provider identifier ("npm", "gomod", "poetry", "pip").
	ID() string

	// Ecosystem is the package ecosystem this provider produces.
	Ecosystem() Ecosystem

	// Detect inspects dir with side-effect-free existence and content
	// checks. It returns nil when the directory shows no markers for this
	// ecosystem; it never returns an error.
	Detect(dir string) *Detection

	// EnsureLockfile applies the lock-file policy gate, invoking the
	// ecosystem's package-manager binary as needed. Command failure is
	// fatal for the scan.
	EnsureLockfile(ctx context.Context, dir string, opts LockfileOptions) error

	// GatherDependencies extracts the dependency list from the richest
	// available source: the lock file when present (transitive closure),
	// otherwise the manifest (direct dependencies, declared ranges kept
	// verbatim). A lock-file parse failure falls back to the manifest
	// unless opts.StandaloneLockfile was given, in which case it is fatal.
	GatherDependencies(dir string, opts GatherOptions) ([]Dependency, error)

	// SupportedManifests lists the manifest file names this provider reads.
	SupportedManifests() []string

	// SupportedLockfiles lists the lock file names this provider reads.
	SupportedLockfiles() []string
}
