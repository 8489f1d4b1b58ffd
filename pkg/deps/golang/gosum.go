package golang

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

// ParseLock parses go.sum content into a flat dependency list.
//
// Each module appears twice in go.sum: once for the module zip and once for
// its go.mod file ("module version/go.mod hash"). The go.mod checksum lines
// are filtered out, and the remaining duplicates collapse to one dependency
// per (module, version). go.sum has no dev notion, so includeDev is ignored.
func ParseLock(raw []byte, includeDev bool) ([]deps.Dependency, error) {
	var out []deps.Dependency

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, errors.New(errors.ErrCodeParse, "go.sum line %d: expected 3 fields, got %d", lineNo, len(fields))
		}

		name, version := fields[0], fields[1]
		if strings.HasSuffix(version, "/go.mod") {
			continue
		}

		out = append(out, deps.Dependency{
			Name:      name,
			Version:   version,
			Ecosystem: deps.EcosystemGo,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "reading go.sum")
	}

	return deps.Dedupe(out), nil
}
