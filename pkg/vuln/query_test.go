package vuln

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

type fakeBulk struct {
	mu         sync.Mutex
	batchSizes []int
	batchErr   error
	singles    int
	advisories map[string][]Advisory
}

func (f *fakeBulk) Name() string { return SourceOSV }

func (f *fakeBulk) QueryBatch(_ context.Context, batch []deps.Dependency) ([][]Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSizes = append(f.batchSizes, len(batch))
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	results := make([][]Advisory, len(batch))
	for i, dep := range batch {
		results[i] = f.advisories[dep.Name]
	}
	return results, nil
}

func (f *fakeBulk) Query(_ context.Context, dep deps.Dependency) ([]Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles++
	return f.advisories[dep.Name], nil
}

type fakePackage struct {
	mu         sync.Mutex
	queried    []string
	errFor     map[string]error
	advisories map[string][]Advisory
}

func (f *fakePackage) Name() string { return SourceGitHub }

func (f *fakePackage) QueryPackage(_ context.Context, _ deps.Ecosystem, name string) ([]Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, name)
	if err := f.errFor[name]; err != nil {
		return nil, err
	}
	return f.advisories[name], nil
}

func npmDeps(n int) []deps.Dependency {
	list := make([]deps.Dependency, n)
	for i := range list {
		list[i] = deps.Dependency{
			Name:      fmt.Sprintf("pkg-%d", i),
			Version:   "1.0.0",
			Ecosystem: deps.EcosystemNPM,
		}
	}
	return list
}

func TestQueryBatchChunking(t *testing.T) {
	// 75 dependencies at batch size 50 must issue exactly two batches.
	bulk := &fakeBulk{advisories: map[string][]Advisory{}}
	o := NewOrchestrator(bulk, nil, nil)

	if _, err := o.Query(context.Background(), npmDeps(75), Progress{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(bulk.batchSizes) != 2 || bulk.batchSizes[0] != 50 || bulk.batchSizes[1] != 25 {
		t.Errorf("batch sizes = %v, want [50 25]", bulk.batchSizes)
	}
}

func TestQueryBatchFailureFallsBackToItems(t *testing.T) {
	bulk := &fakeBulk{
		batchErr: errors.New(errors.ErrCodeNetwork, "connection reset"),
		advisories: map[string][]Advisory{
			"pkg-0": {{ID: "OSV-1", Severity: SeverityHigh, Source: SourceOSV}},
		},
	}
	o := NewOrchestrator(bulk, nil, nil)

	result, err := o.Query(context.Background(), npmDeps(3), Progress{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if bulk.singles != 3 {
		t.Errorf("single queries = %d, want one per batch item", bulk.singles)
	}
	if len(result["pkg-0"]) != 1 {
		t.Errorf("pkg-0 advisories = %v, want fallback result kept", result["pkg-0"])
	}
}

func TestQueryPackageSourceRateLimitDegradesGracefully(t *testing.T) {
	// A rate-limited per-package query keeps the bulk results for that
	// package and never escapes as an error.
	bulk := &fakeBulk{advisories: map[string][]Advisory{
		"left-pad": {{ID: "OSV-9", Severity: SeverityMedium, Summary: "from bulk", Source: SourceOSV}},
	}}
	pkg := &fakePackage{
		errFor: map[string]error{
			"left-pad": &errors.RateLimitedError{RetryAfter: 30},
		},
	}
	o := NewOrchestrator(bulk, pkg, nil)

	result, err := o.Query(context.Background(), []deps.Dependency{
		{Name: "left-pad", Version: "1.3.0", Ecosystem: deps.EcosystemNPM},
	}, Progress{})
	if err != nil {
		t.Fatalf("Query must not propagate per-package failures: %v", err)
	}
	if len(result["left-pad"]) != 1 || result["left-pad"][0].ID != "OSV-9" {
		t.Errorf("result = %v, want bulk advisories retained", result["left-pad"])
	}
}

func TestQueryPerPackageRangeFiltering(t *testing.T) {
	pkg := &fakePackage{advisories: map[string][]Advisory{
		"lodash": {
			{ID: "GHSA-in", Severity: SeverityHigh, VulnerableRange: "< 4.17.21", Source: SourceGitHub},
			{ID: "GHSA-out", Severity: SeverityHigh, VulnerableRange: ">= 5.0.0", Source: SourceGitHub},
		},
	}}
	o := NewOrchestrator(nil, pkg, nil)

	result, err := o.Query(context.Background(), []deps.Dependency{
		{Name: "lodash", Version: "4.17.20", Ecosystem: deps.EcosystemNPM},
	}, Progress{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	advisories := result["lodash"]
	if len(advisories) != 1 || advisories[0].ID != "GHSA-in" {
		t.Errorf("advisories = %v, want only the in-range record", advisories)
	}
}

func TestQueryDistinctNamesQueriedOnce(t *testing.T) {
	// Two resolved versions of one name are separate bulk subjects but a
	// single per-package query.
	pkg := &fakePackage{}
	o := NewOrchestrator(nil, pkg, nil)

	list := []deps.Dependency{
		{Name: "minimist", Version: "0.0.8", Ecosystem: deps.EcosystemNPM},
		{Name: "minimist", Version: "1.2.6", Ecosystem: deps.EcosystemNPM},
	}
	if _, err := o.Query(context.Background(), list, Progress{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(pkg.queried) != 1 {
		t.Errorf("queried = %v, want one query per distinct name", pkg.queried)
	}
}

func TestQueryNoEmptyEntries(t *testing.T) {
	bulk := &fakeBulk{advisories: map[string][]Advisory{}}
	o := NewOrchestrator(bulk, nil, nil)

	result, err := o.Query(context.Background(), npmDeps(5), Progress{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for name, advisories := range result {
		if len(advisories) == 0 {
			t.Errorf("entry %s has empty advisory list", name)
		}
	}
}

func TestQueryProgressCallbacks(t *testing.T) {
	var mu sync.Mutex
	var batches, packages int
	progress := Progress{
		BatchDone:   func(_, _ int) { mu.Lock(); batches++; mu.Unlock() },
		PackageDone: func(string, int) { mu.Lock(); packages++; mu.Unlock() },
	}

	bulk := &fakeBulk{advisories: map[string][]Advisory{}}
	pkg := &fakePackage{}
	o := NewOrchestrator(bulk, pkg, nil)

	if _, err := o.Query(context.Background(), npmDeps(60), progress); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if batches != 2 {
		t.Errorf("batch callbacks = %d, want 2", batches)
	}
	if packages != 60 {
		t.Errorf("package callbacks = %d, want 60", packages)
	}
}
