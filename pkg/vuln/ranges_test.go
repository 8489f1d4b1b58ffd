package vuln

import (
	"testing"

	"github.com/depsentry/depsentry/pkg/deps"
)

func TestRangeMatchesNpm(t *testing.T) {
	tests := []struct {
		name    string
		version string
		rng     string
		want    bool
	}{
		{"inside bounded range", "2.2.0", ">= 2.0.0, < 2.4.1", true},
		{"at exclusive upper bound", "2.4.1", ">= 2.0.0, < 2.4.1", false},
		{"below lower bound", "1.9.9", ">= 2.0.0, < 2.4.1", false},
		{"upper bound only", "1.2.2", "< 1.2.3", true},
		{"patched version", "1.2.3", "< 1.2.3", false},
		{"exact match", "1.0.0", "= 1.0.0", true},
		{"exact mismatch", "1.0.1", "= 1.0.0", false},
		{"empty range matches", "1.0.0", "", true},
		{"unparseable range matches", "1.0.0", "not-a-range", true},
		{"unparseable version matches", "file:../local", "< 1.2.3", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RangeMatches(deps.EcosystemNPM, tt.version, tt.rng)
			if got != tt.want {
				t.Errorf("RangeMatches(npm, %q, %q) = %v, want %v", tt.version, tt.rng, got, tt.want)
			}
		})
	}
}

func TestRangeMatchesOtherEcosystems(t *testing.T) {
	// Only npm ranges are evaluated. Everything else always matches, an
	// intentional over-report rather than a silent drop.
	if !RangeMatches(deps.EcosystemGo, "v1.0.0", "< 99.0.0") {
		t.Error("Go ranges must always match")
	}
	if !RangeMatches(deps.EcosystemPyPI, "2.31.0", "< 1.0.0") {
		t.Error("PyPI ranges must always match")
	}
}
