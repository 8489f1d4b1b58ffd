package python

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

const requirementsName = "requirements.txt"

// Pip is the plain requirements-list provider. requirements.txt serves as
// both manifest and pin list, so there is no separate lock file and the
// lock-file policy gate has nothing to run.
type Pip struct{}

func (Pip) ID() string                   { return "pip" }
func (Pip) Ecosystem() deps.Ecosystem    { return deps.EcosystemPyPI }
func (Pip) SupportedManifests() []string { return []string{requirementsName} }
func (Pip) SupportedLockfiles() []string { return nil }

// Detect matches directories containing requirements.txt.
func (p Pip) Detect(dir string) *deps.Detection {
	if !fileExists(filepath.Join(dir, requirementsName)) {
		return nil
	}
	return &deps.Detection{
		ProviderID: p.ID(),
		Ecosystem:  p.Ecosystem(),
		Variant:    "pip",
		Confidence: deps.ConfidenceManifest,
	}
}

// EnsureLockfile is a no-op for pip; there is no lock file to manage.
func (Pip) EnsureLockfile(ctx context.Context, dir string, opts deps.LockfileOptions) error {
	return nil
}

// GatherDependencies parses requirements.txt.
func (p Pip) GatherDependencies(dir string, opts deps.GatherOptions) ([]deps.Dependency, error) {
	path := filepath.Join(dir, requirementsName)
	if opts.StandaloneLockfile != "" {
		path = opts.StandaloneLockfile
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "reading %s", path)
	}
	return ParseRequirements(raw, opts.IncludeDev)
}

// ParseRequirements parses requirements.txt content. Comments, pip option
// lines (-r, --index-url, hash continuation lines), editable installs, and
// URL or VCS references are skipped. Exact pins yield the bare version;
// other specifiers are kept verbatim. includeDev has no effect since the
// format has no dev notion.
func ParseRequirements(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var out []deps.Dependency

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	continued := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		wasContinued := continued
		continued = strings.HasSuffix(line, "\\")
		line = strings.TrimSuffix(line, "\\")

		// Continuation lines carry hashes and markers, not new requirements.
		if wasContinued {
			continue
		}
		if idx := strings.Index(line, " #"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if strings.Contains(line, "://") || strings.HasPrefix(line, "git+") ||
			strings.HasPrefix(line, "./") || strings.HasPrefix(line, "../") {
			continue
		}

		name, version, ok := splitRequirement(line)
		if !ok {
			return nil, errors.New(errors.ErrCodeParse, "requirements.txt: cannot parse %q", line)
		}
		out = append(out, deps.Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: deps.EcosystemPyPI,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "reading requirements.txt")
	}

	return deps.Dedupe(out), nil
}

var _ deps.Provider = Pip{}
