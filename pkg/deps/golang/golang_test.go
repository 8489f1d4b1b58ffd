package golang

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/depsentry/depsentry/pkg/deps"
	"github.com/depsentry/depsentry/pkg/errors"
)

const sampleGoMod = `module example.com/demo

go 1.22

require (
	github.com/spf13/cobra v1.8.0
	github.com/charmbracelet/log v0.4.0 // comment
	github.com/old/thing v0.0.0 // indirect
)

require golang.org/x/sync v0.6.0

replace github.com/internal/tool => ./tools/tool

require github.com/internal/tool v0.1.0
`

func TestParseManifest(t *testing.T) {
	list, err := ParseManifest([]byte(sampleGoMod), false)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}

	want := map[string]string{
		"github.com/spf13/cobra":      "v1.8.0",
		"github.com/charmbracelet/log": "v0.4.0",
		"golang.org/x/sync":           "v0.6.0",
	}
	if len(list) != len(want) {
		t.Fatalf("got %v, want %d modules", list, len(want))
	}
	for _, d := range list {
		if want[d.Name] != d.Version {
			t.Errorf("%s = %s, want %s", d.Name, d.Version, want[d.Name])
		}
		if d.Ecosystem != deps.EcosystemGo {
			t.Errorf("%s ecosystem = %s", d.Name, d.Ecosystem)
		}
	}
}

func TestParseManifestExcludesIndirectAndLocal(t *testing.T) {
	list, err := ParseManifest([]byte(sampleGoMod), false)
	if err != nil {
		t.Fatalf("ParseManifest: %v", err)
	}
	for _, d := range list {
		if d.Name == "github.com/old/thing" {
			t.Error("indirect requirement should be excluded")
		}
		if d.Name == "github.com/internal/tool" {
			t.Error("locally replaced module should be excluded")
		}
	}
}

func TestParseManifestMissingModuleDirective(t *testing.T) {
	_, err := ParseManifest([]byte("require github.com/x/y v1.0.0\n"), false)
	if err == nil {
		t.Fatal("expected parse error for file without module directive")
	}
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("code = %q, want PARSE_ERROR", errors.GetCode(err))
	}
}

const sampleGoSum = `github.com/spf13/cobra v1.8.0 h1:abc=
github.com/spf13/cobra v1.8.0/go.mod h1:def=
golang.org/x/sync v0.6.0 h1:ghi=
golang.org/x/sync v0.6.0/go.mod h1:jkl=
github.com/spf13/pflag v1.0.5 h1:mno=
github.com/spf13/pflag v1.0.5/go.mod h1:pqr=
`

func TestParseLockFiltersGoModLines(t *testing.T) {
	list, err := ParseLock([]byte(sampleGoSum), false)
	if err != nil {
		t.Fatalf("ParseLock: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("got %v, want 3 modules", list)
	}
	if list[0].Name != "github.com/spf13/cobra" || list[0].Version != "v1.8.0" {
		t.Errorf("first entry = %v", list[0])
	}
}

func TestParseLockMalformedLine(t *testing.T) {
	_, err := ParseLock([]byte("github.com/x/y v1.0.0\n"), false)
	if err == nil {
		t.Fatal("two-field line should be a parse error")
	}
}

func TestParseLockIdempotent(t *testing.T) {
	a, _ := ParseLock([]byte(sampleGoSum), false)
	b, _ := ParseLock([]byte(sampleGoSum), false)
	if len(a) != len(b) {
		t.Fatalf("lengths differ")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("index %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestDetectAndGather(t *testing.T) {
	p := Provider{}
	dir := t.TempDir()

	if det := p.Detect(dir); det != nil {
		t.Error("empty dir should not detect")
	}

	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(sampleGoMod), 0o644); err != nil {
		t.Fatal(err)
	}
	det := p.Detect(dir)
	if det == nil || det.Confidence != deps.ConfidenceManifest {
		t.Fatalf("detection = %+v, want manifest confidence", det)
	}

	if err := os.WriteFile(filepath.Join(dir, "go.sum"), []byte(sampleGoSum), 0o644); err != nil {
		t.Fatal(err)
	}
	det = p.Detect(dir)
	if det.Confidence != deps.ConfidenceLockfile {
		t.Errorf("confidence = %s, want lockfile", det.Confidence)
	}

	list, err := p.GatherDependencies(dir, deps.GatherOptions{})
	if err != nil {
		t.Fatalf("GatherDependencies: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("gather should use go.sum, got %v", list)
	}
}
