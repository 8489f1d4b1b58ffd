package scan

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/registry"
)

// MaintenanceConcurrency bounds in-flight registry requests during the
// maintenance check. Smaller than the vulnerability-query default since
// the check is purely additive.
const MaintenanceConcurrency = 3

// StaleWindow is how long a package may go without a release before being
// flagged as stale.
const StaleWindow = 2 * 365 * 24 * time.Hour

// MaintenanceClient answers maintenance signals for one registry.
// The clients in pkg/registry/{npm,pypi,goproxy} implement it.
type MaintenanceClient interface {
	Fetch(ctx context.Context, name string) (*registry.Maintenance, error)
}

// checkMaintenance queries the matching registry for each distinct package
// name and keeps only the noteworthy answers (deprecated or stale).
// Registry failures are logged and skipped; the check never fails a scan.
func checkMaintenance(ctx context.Context, dependencies []deps.Dependency, clients map[deps.Ecosystem]MaintenanceClient, logger *log.Logger) map[string]registry.Maintenance {
	if len(clients) == 0 {
		return nil
	}

	type subject struct {
		name      string
		ecosystem deps.Ecosystem
	}
	var subjects []subject
	seen := make(map[string]bool)
	for _, dep := range dependencies {
		if seen[dep.Name] {
			continue
		}
		seen[dep.Name] = true
		if _, ok := clients[dep.Ecosystem]; ok {
			subjects = append(subjects, subject{dep.Name, dep.Ecosystem})
		}
	}

	flagged := make(map[string]registry.Maintenance)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, MaintenanceConcurrency)

	for _, s := range subjects {
		wg.Add(1)
		go func(s subject) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m, err := clients[s.ecosystem].Fetch(ctx, s.name)
			if err != nil {
				logger.Debug("maintenance check failed, skipping",
					"package", s.name,
					"ecosystem", s.ecosystem,
					"error", err)
				return
			}
			if m.Deprecated || m.Stale(StaleWindow) {
				mu.Lock()
				flagged[s.name] = *m
				mu.Unlock()
			}
		}(s)
	}
	wg.Wait()

	if len(flagged) == 0 {
		return nil
	}
	return flagged
}
