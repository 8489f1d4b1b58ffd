package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/depsentry/depsentry/pkg/cache"
	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/deps/golang"
	"github.com/depsentry/depsentry/pkg/deps/npm"
	"github.com/depsentry/depsentry/pkg/deps/python"
	"github.com/depsentry/depsentry/pkg/registry/goproxy"
	registrynpm "github.com/depsentry/depsentry/pkg/registry/npm"
	"github.com/depsentry/depsentry/pkg/registry/pypi"
	"github.com/depsentry/depsentry/pkg/scan"
	"github.com/depsentry/depsentry/pkg/vuln"
	"github.com/depsentry/depsentry/pkg/vuln/ghsa"
	"github.com/depsentry/depsentry/pkg/vuln/osv"
)

type scanOpts struct {
	includeDev   bool
	lockfileMode string
	concurrency  int
	ignoreFile   string
	maintenance  bool
	jsonOut      bool
	output       string
}

func newScanCmd() *cobra.Command {
	opts := scanOpts{concurrency: vuln.DefaultConcurrency}

	cmd := &cobra.Command{
		Use:   "scan <path>",
		Short: "Scan a project for vulnerable dependencies",
		Long: `Scan a project directory, manifest file, or lock file for known vulnerabilities.

The ecosystem is detected automatically. Pass a lock file directly to scan
exactly that file without a surrounding project.

Examples:
  depsentry scan .                        # Scan the current project
  depsentry scan path/to/package-lock.json
  depsentry scan . --dev --lockfile-mode check
  depsentry scan . --json -o report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runScan(c.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.includeDev, "dev", false, "include development dependencies")
	cmd.Flags().StringVar(&opts.lockfileMode, "lockfile-mode", "", "lock file policy: check, refresh, or enforce")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", opts.concurrency, "max concurrent advisory requests")
	cmd.Flags().StringVar(&opts.ignoreFile, "ignore-file", "", "path to a JSON ignore list")
	cmd.Flags().BoolVar(&opts.maintenance, "maintenance", false, "check registries for stale or deprecated packages")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit a JSON report instead of the console report")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")

	return cmd
}

func runScan(ctx context.Context, path string, opts scanOpts) error {
	logger := loggerFromContext(ctx)

	responseCache := newCache(ctx, logger)
	defer responseCache.Close()

	scanner := scan.NewScanner(newRegistry(), osv.NewClient(), newGitHubSource(logger), logger)
	if opts.maintenance {
		scanner.Maintenance = map[deps.Ecosystem]scan.MaintenanceClient{
			deps.EcosystemNPM:  registrynpm.NewClient(responseCache),
			deps.EcosystemPyPI: pypi.NewClient(responseCache),
			deps.EcosystemGo:   goproxy.NewClient(responseCache),
		}
	}

	scanOptions := scan.Options{
		IncludeDev:       opts.includeDev,
		LockfileMode:     scan.LockfileMode(opts.lockfileMode),
		Concurrency:      opts.concurrency,
		IgnoreFile:       opts.ignoreFile,
		CheckMaintenance: opts.maintenance,
		Logger:           logger,
	}

	var spinner *Spinner
	if !opts.jsonOut {
		spinner = newSpinner(ctx, "scanning "+path)
		spinner.Start()
		scanOptions.Hooks = &spinnerHooks{spinner: spinner}
	}

	tracker := newProgress(logger)
	result, err := scanner.Scan(ctx, path, scanOptions)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	tracker.done(fmt.Sprintf("scanned %d packages", len(result.Deps)))

	if opts.jsonOut {
		data, err := renderJSON(result)
		if err != nil {
			return err
		}
		if opts.output != "" {
			return os.WriteFile(opts.output, data, 0o644)
		}
		fmt.Println(string(data))
		return nil
	}

	renderConsole(result)
	return nil
}

// newRegistry builds the provider registry in fixed precedence order.
func newRegistry() *deps.Registry {
	return deps.NewRegistry(npm.Provider{}, golang.Provider{}, python.Poetry{}, python.Pip{})
}

// newGitHubSource builds the per-package advisory source when a token is
// available. Without GITHUB_TOKEN the scan proceeds on OSV data alone.
func newGitHubSource(logger *log.Logger) vuln.PackageSource {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		logger.Warn("GITHUB_TOKEN not set, skipping GitHub advisory queries")
		return nil
	}
	client, err := ghsa.NewClient(token)
	if err != nil {
		logger.Warn("GitHub advisory source unavailable", "error", err)
		return nil
	}
	return client
}

// newCache builds the registry response cache: Redis when
// DEPSENTRY_REDIS_URL is set, otherwise a file cache under
// DEPSENTRY_CACHE_DIR or the user cache directory. Failures degrade to no
// caching rather than failing the scan.
func newCache(ctx context.Context, logger *log.Logger) cache.Cache {
	if url := os.Getenv("DEPSENTRY_REDIS_URL"); url != "" {
		c, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			return c
		}
		logger.Warn("redis cache unavailable, falling back to file cache", "error", err)
	}

	dir := os.Getenv("DEPSENTRY_CACHE_DIR")
	if dir == "" {
		if base, err := os.UserCacheDir(); err == nil {
			dir = filepath.Join(base, "depsentry")
		}
	}
	if dir != "" {
		if c, err := cache.NewFileCache(dir); err == nil {
			return c
		}
	}
	logger.Debug("response caching disabled")
	return cache.NewNullCache()
}

// spinnerHooks drives the spinner message from scan progress events.
type spinnerHooks struct {
	spinner *Spinner
}

func (h *spinnerHooks) OnDetect(d deps.Detection) {
	h.spinner.SetMessage(fmt.Sprintf("detected %s project", d.Ecosystem))
}

func (h *spinnerHooks) OnDependenciesGathered(count int) {
	h.spinner.SetMessage(fmt.Sprintf("checking %d packages", count))
}

func (h *spinnerHooks) OnBatchComplete(batch, batches int) {
	h.spinner.SetMessage(fmt.Sprintf("querying advisories (batch %d/%d)", batch, batches))
}

func (h *spinnerHooks) OnPackageChecked(string, int) {}

func (h *spinnerHooks) OnComplete(int, time.Duration) {}

var _ scan.Hooks = (*spinnerHooks)(nil)
