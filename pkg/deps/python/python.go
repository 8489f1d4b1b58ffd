// Package python implements the Python ecosystem providers.
//
// Two providers live here, in detection precedence order: Poetry
// (pyproject.toml with a poetry marker, poetry.lock as the lock source) and
// plain pip (requirements.txt, which is both manifest and pin list).
// Package names are normalized following PEP 503: lowercased with runs of
// [-_.] replaced by a single hyphen.
package python

import (
	"regexp"
	"strings"
)

var normalizeRE = regexp.MustCompile(`[-_.]+`)

// normalize applies PEP 503 name normalization.
func normalize(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// requirementRE captures the package name at the start of a PEP 508
// requirement string ("requests[socks]>=2.0; python_version > '3.8'").
var requirementRE = regexp.MustCompile(`^([A-Za-z0-9][-A-Za-z0-9._]*)`)

// splitRequirement splits a requirement string into a normalized name and
// the declared version text. Exact pins ("==1.2.3") yield the bare version;
// any other specifier is kept verbatim. Extras and environment markers are
// dropped.
func splitRequirement(req string) (name, version string, ok bool) {
	req = strings.TrimSpace(req)
	if marker := strings.Index(req, ";"); marker >= 0 {
		req = strings.TrimSpace(req[:marker])
	}

	m := requirementRE.FindString(req)
	if m == "" {
		return "", "", false
	}
	rest := strings.TrimSpace(req[len(m):])
	if idx := strings.Index(rest, "["); idx == 0 {
		// strip extras: [socks]>=2.0
		if end := strings.Index(rest, "]"); end >= 0 {
			rest = strings.TrimSpace(rest[end+1:])
		}
	}

	version = rest
	if pin, found := strings.CutPrefix(rest, "=="); found {
		version = strings.TrimSpace(pin)
	}
	return normalize(m), version, true
}
