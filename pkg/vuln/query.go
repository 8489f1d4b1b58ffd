package vuln

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/depsentry/depsentry/pkg/deps"
)

// BatchSize is the number of dependencies submitted per bulk request.
const BatchSize = 50

// DefaultConcurrency bounds in-flight per-package requests.
const DefaultConcurrency = 10

// BulkSource is a vulnerability source with a batch endpoint. QueryBatch
// answers one batch positionally: results[i] holds the advisories for
// dependencies[i]. Query answers for a single dependency and is used as
// the fallback when a whole batch fails.
type BulkSource interface {
	Name() string
	QueryBatch(ctx context.Context, dependencies []deps.Dependency) ([][]Advisory, error)
	Query(ctx context.Context, dep deps.Dependency) ([]Advisory, error)
}

// PackageSource is a vulnerability source queried one package name at a
// time. It answers with all known advisories for the name regardless of
// version; the orchestrator range-filters against resolved versions.
type PackageSource interface {
	Name() string
	QueryPackage(ctx context.Context, ecosystem deps.Ecosystem, name string) ([]Advisory, error)
}

// Progress receives orchestration events. Callbacks are invoked
// synchronously from the goroutine doing the work; implementations must
// be safe for concurrent use. Nil fields are skipped.
type Progress struct {
	BatchDone   func(batch, batches int)
	PackageDone func(name string, advisories int)
}

func (p Progress) batchDone(batch, batches int) {
	if p.BatchDone != nil {
		p.BatchDone(batch, batches)
	}
}

func (p Progress) packageDone(name string, advisories int) {
	if p.PackageDone != nil {
		p.PackageDone(name, advisories)
	}
}

// Orchestrator queries the configured sources for a dependency list and
// merges the per-source answers into unified per-package advisory lists.
//
// Either source may be nil, in which case it is skipped. The zero
// concurrency value means DefaultConcurrency.
type Orchestrator struct {
	Bulk        BulkSource
	Package     PackageSource
	Concurrency int
	Logger      *log.Logger
}

// NewOrchestrator creates an orchestrator over the given sources.
func NewOrchestrator(bulk BulkSource, pkg PackageSource, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Bulk:    bulk,
		Package: pkg,
		Logger:  logger,
	}
}

// Query cross-references dependencies against both sources and returns
// merged advisories keyed by package name. The map never contains an
// entry with an empty advisory list.
//
// Bulk batches run sequentially to respect the source's rate limits.
// Per-package requests run under a counting semaphore. A
// per-package failure degrades gracefully: the package keeps whatever
// the bulk source produced and the omission is logged, never returned
// as an error.
func (o *Orchestrator) Query(ctx context.Context, dependencies []deps.Dependency, progress Progress) (map[string][]UnifiedAdvisory, error) {
	dependencies = deps.Dedupe(dependencies)

	bulkByName := o.queryBulk(ctx, dependencies, progress)
	pkgByName := o.queryPerPackage(ctx, dependencies, progress)

	result := make(map[string][]UnifiedAdvisory)
	for _, dep := range dependencies {
		if _, done := result[dep.Name]; done {
			continue
		}
		merged := Merge(bulkByName[dep.Name], pkgByName[dep.Name])
		if len(merged) > 0 {
			result[dep.Name] = merged
		}
	}
	return result, nil
}

// queryBulk submits fixed-size batches sequentially. A failed batch is
// retried as individual per-dependency requests; individual failures are
// logged and yield no advisories for that dependency.
func (o *Orchestrator) queryBulk(ctx context.Context, dependencies []deps.Dependency, progress Progress) map[string][]Advisory {
	byName := make(map[string][]Advisory)
	if o.Bulk == nil || len(dependencies) == 0 {
		return byName
	}

	batches := (len(dependencies) + BatchSize - 1) / BatchSize
	for i := 0; i < len(dependencies); i += BatchSize {
		end := i + BatchSize
		if end > len(dependencies) {
			end = len(dependencies)
		}
		batch := dependencies[i:end]
		batchNum := i/BatchSize + 1

		results, err := o.Bulk.QueryBatch(ctx, batch)
		if err != nil {
			o.Logger.Warn("batch query failed, retrying items individually",
				"source", o.Bulk.Name(),
				"batch", batchNum,
				"size", len(batch),
				"error", err)
			results = o.queryBatchItems(ctx, batch)
		}

		for j, advisories := range results {
			if j >= len(batch) {
				break
			}
			byName[batch[j].Name] = append(byName[batch[j].Name], advisories...)
		}
		progress.batchDone(batchNum, batches)
	}
	return byName
}

// queryBatchItems issues one request per dependency after a batch failure.
func (o *Orchestrator) queryBatchItems(ctx context.Context, batch []deps.Dependency) [][]Advisory {
	results := make([][]Advisory, len(batch))
	for i, dep := range batch {
		advisories, err := o.Bulk.Query(ctx, dep)
		if err != nil {
			o.Logger.Warn("dependency query failed, skipping",
				"source", o.Bulk.Name(),
				"package", dep.Name,
				"version", dep.Version,
				"error", err)
			continue
		}
		results[i] = advisories
	}
	return results
}

// queryPerPackage fans out one request per distinct package name under a
// counting semaphore, then range-filters each answer against the resolved
// versions of that name.
func (o *Orchestrator) queryPerPackage(ctx context.Context, dependencies []deps.Dependency, progress Progress) map[string][]Advisory {
	byName := make(map[string][]Advisory)
	if o.Package == nil || len(dependencies) == 0 {
		return byName
	}

	// Distinct names, with every resolved version of each for filtering.
	versions := make(map[string][]deps.Dependency)
	var names []string
	for _, dep := range dependencies {
		if _, seen := versions[dep.Name]; !seen {
			names = append(names, dep.Name)
		}
		versions[dep.Name] = append(versions[dep.Name], dep)
	}

	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	sem := make(chan struct{}, concurrency)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resolved := versions[name]
			advisories, err := o.Package.QueryPackage(ctx, resolved[0].Ecosystem, name)
			if err != nil {
				o.Logger.Warn("package query failed, keeping bulk results only",
					"source", o.Package.Name(),
					"package", name,
					"error", err)
				progress.packageDone(name, 0)
				return
			}

			matched := filterByRange(resolved, advisories)
			if len(matched) > 0 {
				mu.Lock()
				byName[name] = matched
				mu.Unlock()
			}
			progress.packageDone(name, len(matched))
		}(name)
	}
	wg.Wait()

	return byName
}

// filterByRange keeps an advisory if any resolved version of the package
// falls inside its vulnerable range.
func filterByRange(resolved []deps.Dependency, advisories []Advisory) []Advisory {
	var matched []Advisory
	for _, adv := range advisories {
		for _, dep := range resolved {
			if RangeMatches(dep.Ecosystem, dep.Version, adv.VulnerableRange) {
				matched = append(matched, adv)
				break
			}
		}
	}
	return matched
}
