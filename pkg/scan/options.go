package scan

import (
	"github.com/charmbracelet/log"

	"github.com/depsentry/depsentry/pkg/errors"
	"github.com/depsentry/depsentry/pkg/execx"
	"github.com/depsentry/depsentry/pkg/vuln"
)

// LockfileMode selects the lock-file policy applied before parsing.
type LockfileMode string

const (
	// LockfileNone skips lock-file handling entirely.
	LockfileNone LockfileMode = ""

	// LockfileCheck validates an existing lock file, tolerating absence.
	LockfileCheck LockfileMode = "check"

	// LockfileRefresh regenerates the lock file before parsing.
	LockfileRefresh LockfileMode = "refresh"

	// LockfileEnforce creates a missing lock file and validates it against
	// the manifest, failing the scan on drift.
	LockfileEnforce LockfileMode = "enforce"
)

// Options configure one scan invocation.
type Options struct {
	// IncludeDev includes development-only dependencies.
	IncludeDev bool

	// LockfileMode is the lock-file policy. Default LockfileNone.
	LockfileMode LockfileMode

	// Concurrency bounds in-flight per-package vulnerability requests.
	// Zero means vuln.DefaultConcurrency.
	Concurrency int

	// IgnoreFile is an optional path to a JSON ignore list.
	IgnoreFile string

	// CheckMaintenance adds registry staleness/deprecation signals to the
	// result.
	CheckMaintenance bool

	// Hooks receives progress events. Nil means NoopHooks.
	Hooks Hooks

	// Runner executes package-manager binaries for lock-file handling.
	// Nil means the real system runner.
	Runner execx.Runner

	// Logger overrides the scanner's logger for this invocation.
	Logger *log.Logger
}

// ValidateAndSetDefaults checks option consistency and fills defaults.
func (o *Options) ValidateAndSetDefaults() error {
	switch o.LockfileMode {
	case LockfileNone, LockfileCheck, LockfileRefresh, LockfileEnforce:
	default:
		return errors.New(errors.ErrCodeInvalidOptions, "unknown lockfile mode %q", o.LockfileMode)
	}
	if o.Concurrency < 0 {
		return errors.New(errors.ErrCodeInvalidOptions, "concurrency must be non-negative, got %d", o.Concurrency)
	}
	if o.Concurrency == 0 {
		o.Concurrency = vuln.DefaultConcurrency
	}
	if o.Hooks == nil {
		o.Hooks = NoopHooks{}
	}
	return nil
}
