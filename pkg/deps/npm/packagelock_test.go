package npm

import (
	"testing"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

const lockV3 = `{
  "name": "demo",
  "lockfileVersion": 3,
  "packages": {
    "": {"name": "demo", "version": "1.0.0"},
    "node_modules/lodash": {"version": "4.17.21", "resolved": "https://registry.npmjs.org/lodash/-/lodash-4.17.21.tgz"},
    "node_modules/@babel/core": {"version": "7.24.0", "resolved": "https://registry.npmjs.org/@babel/core/-/core-7.24.0.tgz"},
    "node_modules/a/node_modules/lodash": {"version": "3.10.1", "resolved": "https://registry.npmjs.org/lodash/-/lodash-3.10.1.tgz"},
    "node_modules/a": {"version": "1.2.3", "resolved": "https://registry.npmjs.org/a/-/a-1.2.3.tgz"},
    "node_modules/jest": {"version": "29.7.0", "dev": true, "resolved": "https://registry.npmjs.org/jest/-/jest-29.7.0.tgz"},
    "node_modules/local-pkg": {"version": "0.0.1", "link": true},
    "node_modules/from-git": {"version": "2.0.0", "resolved": "git+https://github.com/x/from-git.git"},
    "packages/workspace-member": {"name": "workspace-member", "version": "0.1.0"}
  }
}`

func TestParseLockV3(t *testing.T) {
	list, err := ParseLock([]byte(lockV3), false)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}

	want := map[string]bool{
		"@babel/core@7.24.0": true,
		"a@1.2.3":            true,
		"lodash@3.10.1":      true,
		"lodash@4.17.21":     true,
	}
	if len(list) != len(want) {
		t.Fatalf("got %d deps %v, want %d", len(list), list, len(want))
	}
	for _, d := range list {
		if !want[d.Key()] {
			t.Errorf("unexpected dependency %s", d.Key())
		}
		if d.Ecosystem != deps.EcosystemNPM {
			t.Errorf("%s ecosystem = %s", d.Name, d.Ecosystem)
		}
	}
}

func TestParseLockV3IncludeDev(t *testing.T) {
	list, err := ParseLock([]byte(lockV3), true)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	found := false
	for _, d := range list {
		if d.Name == "jest" && d.Version == "29.7.0" {
			found = true
		}
	}
	if !found {
		t.Error("includeDev=true should retain jest")
	}
}

func TestParseLockConflictingVersionsKept(t *testing.T) {
	list, err := ParseLock([]byte(lockV3), false)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	versions := make(map[string]int)
	for _, d := range list {
		if d.Name == "lodash" {
			versions[d.Version]++
		}
	}
	if len(versions) != 2 {
		t.Errorf("lodash versions = %v, want both 4.17.21 and 3.10.1", versions)
	}
}

func TestParseLockV1(t *testing.T) {
	raw := `{
  "lockfileVersion": 1,
  "dependencies": {
    "express": {
      "version": "4.18.2",
      "dependencies": {
        "cookie": {"version": "0.5.0"}
      }
    },
    "mocha": {"version": "10.2.0", "dev": true}
  }
}`
	list, err := ParseLock([]byte(raw), false)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %v, want express and cookie", list)
	}
	keys := map[string]bool{}
	for _, d := range list {
		keys[d.Key()] = true
	}
	if !keys["express@4.18.2"] || !keys["cookie@0.5.0"] {
		t.Errorf("unexpected set: %v", keys)
	}
}

func TestParseLockIdempotent(t *testing.T) {
	a, err := ParseLock([]byte(lockV3), true)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	b, err := ParseLock([]byte(lockV3), true)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestParseLockMalformed(t *testing.T) {
	_, err := ParseLock([]byte(`{not json`), false)
	if err == nil {
		t.Fatal("malformed input should error, not return empty")
	}
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("error code = %q, want PARSE_ERROR", errors.GetCode(err))
	}
}
