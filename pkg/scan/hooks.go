package scan

import (
	"time"

	"github.com/depsentry/depsentry/pkg/deps"
)

// Hooks receives progress events during a scan. An implementation is
// injected per call through [Options.Hooks]; there is no process-wide
// observer registry, so concurrent scans with different hooks are safe.
//
// Methods are invoked synchronously from the scan's goroutines.
// OnBatchComplete and OnPackageChecked may be called concurrently;
// implementations must tolerate that.
type Hooks interface {
	// OnDetect fires after ecosystem detection, before lock-file handling.
	OnDetect(detection deps.Detection)

	// OnDependenciesGathered fires once the dependency list is extracted.
	OnDependenciesGathered(count int)

	// OnBatchComplete fires after each bulk-source batch round-trip.
	OnBatchComplete(batch, batches int)

	// OnPackageChecked fires after each per-package source query, with the
	// number of range-matched advisories (0 when the query failed).
	OnPackageChecked(name string, advisories int)

	// OnComplete fires when the scan finishes successfully.
	OnComplete(vulnerable int, duration time.Duration)
}

// NoopHooks is the default Hooks implementation. It does nothing.
type NoopHooks struct{}

func (NoopHooks) OnDetect(deps.Detection)       {}
func (NoopHooks) OnDependenciesGathered(int)    {}
func (NoopHooks) OnBatchComplete(int, int)      {}
func (NoopHooks) OnPackageChecked(string, int)  {}
func (NoopHooks) OnComplete(int, time.Duration) {}

var _ Hooks = NoopHooks{}
