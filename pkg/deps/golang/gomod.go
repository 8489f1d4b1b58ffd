package golang

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

// ParseManifest parses go.mod content into the direct requirement list.
// Both require blocks and single-line requires are handled. Indirect
// requirements and modules replaced by a local path are excluded.
func ParseManifest(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var out []deps.Dependency
	localReplaced := localReplacements(raw)

	inRequire := false
	sawModule := false

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "module ") {
			sawModule = true
			continue
		}

		if strings.HasPrefix(line, "require (") || line == "require(" {
			inRequire = true
			continue
		}
		if inRequire && line == ")" {
			inRequire = false
			continue
		}

		// Single-line require
		if strings.HasPrefix(line, "require ") && !strings.Contains(line, "(") {
			line = strings.TrimPrefix(line, "require ")
		} else if !inRequire {
			continue
		}

		name, version, ok := parseRequireLine(line)
		if !ok || localReplaced[name] {
			continue
		}
		out = append(out, deps.Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: deps.EcosystemGo,
		})
	}

	if !sawModule {
		return nil, errors.New(errors.ErrCodeParse, "go.mod is missing a module directive")
	}
	return deps.Dedupe(out), nil
}

// parseRequireLine extracts "module version" from one require line.
// Indirect requirements return ok=false.
func parseRequireLine(line string) (name, version string, ok bool) {
	if strings.Contains(line, "// indirect") {
		return "", "", false
	}
	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) < 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// localReplacements collects module paths replaced by a filesystem path.
// Those modules live inside the repository and are not auditable packages.
func localReplacements(raw []byte) map[string]bool {
	out := make(map[string]bool)
	inReplace := false

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if strings.HasPrefix(line, "replace (") {
			inReplace = true
			continue
		}
		if inReplace && line == ")" {
			inReplace = false
			continue
		}
		if !inReplace {
			if !strings.HasPrefix(line, "replace ") {
				continue
			}
			line = strings.TrimPrefix(line, "replace ")
		}

		from, to, found := strings.Cut(line, "=>")
		if !found {
			continue
		}
		target := strings.Fields(strings.TrimSpace(to))
		if len(target) == 1 && (strings.HasPrefix(target[0], "./") || strings.HasPrefix(target[0], "../")) {
			if fields := strings.Fields(strings.TrimSpace(from)); len(fields) > 0 {
				out[fields[0]] = true
			}
		}
	}
	return out
}
