package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/depsentry/depsentry/pkg/scan"
	"github.com/depsentry/depsentry/pkg/vuln"
)

// jsonSummary is the summary block of the JSON report.
type jsonSummary struct {
	Scanned              int     `json:"scanned"`
	Vulnerable           int     `json:"vulnerable"`
	TotalVulnerabilities int     `json:"totalVulnerabilities"`
	ScanDuration         float64 `json:"scanDuration"`
	Timestamp            string  `json:"timestamp"`
}

// jsonPackage is one scanned package in the JSON report.
type jsonPackage struct {
	Name            string                 `json:"name"`
	Version         string                 `json:"version"`
	Ecosystem       string                 `json:"ecosystem"`
	Vulnerabilities []vuln.UnifiedAdvisory `json:"vulnerabilities"`
}

type jsonReport struct {
	Summary  jsonSummary   `json:"summary"`
	Packages []jsonPackage `json:"packages"`
}

// renderJSON serializes the scan result into the report document shape.
// Every scanned package appears, with an empty vulnerabilities array when
// clean, so consumers can account for the full closure.
func renderJSON(result *scan.Result) ([]byte, error) {
	report := jsonReport{
		Summary: jsonSummary{
			Scanned:              len(result.Deps),
			Vulnerable:           result.VulnerablePackages(),
			TotalVulnerabilities: result.TotalVulnerabilities(),
			ScanDuration:         result.ScanDuration.Seconds(),
			Timestamp:            time.Now().UTC().Format(time.RFC3339),
		},
		Packages: make([]jsonPackage, 0, len(result.Deps)),
	}

	for _, dep := range result.Deps {
		pkg := jsonPackage{
			Name:            dep.Name,
			Version:         dep.Version,
			Ecosystem:       string(dep.Ecosystem),
			Vulnerabilities: []vuln.UnifiedAdvisory{},
		}
		if advisories, ok := result.AdvisoriesByPackage[dep.Name]; ok {
			pkg.Vulnerabilities = advisories
		}
		report.Packages = append(report.Packages, pkg)
	}

	return json.MarshalIndent(report, "", "  ")
}

// renderConsole prints a human-readable report. Vulnerable packages are
// sorted by their highest severity, most severe first; merge order inside
// each package is kept.
func renderConsole(result *scan.Result) {
	fmt.Println()
	fmt.Println(StyleTitle.Render("Scan Report"))
	printDetail("ecosystem: %s (%s, %s)", result.Detection.Ecosystem, result.Detection.ProviderID, result.Detection.Confidence)
	printDetail("scanned %d packages in %s", len(result.Deps), result.ScanDuration.Round(time.Millisecond))
	fmt.Println()

	if result.VulnerablePackages() == 0 {
		printSuccess("no known vulnerabilities")
	} else {
		printError("%d vulnerable packages, %d vulnerabilities",
			result.VulnerablePackages(), result.TotalVulnerabilities())
		fmt.Println()

		for _, name := range sortedBySeverity(result.AdvisoriesByPackage) {
			fmt.Println(StyleValue.Render(name))
			for _, adv := range result.AdvisoriesByPackage[name] {
				sev := severityStyle(adv.Severity).Render(strings.ToUpper(string(adv.Severity)))
				line := fmt.Sprintf("  %s %s", sev, adv.ID)
				if adv.Summary != "" {
					line += StyleDim.Render(" " + adv.Summary)
				}
				fmt.Println(line)
				if adv.FirstPatchedVersion != "" {
					printDetail("  fixed in %s", adv.FirstPatchedVersion)
				}
			}
			fmt.Println()
		}
	}

	for _, name := range sortedKeys(result.Maintenance) {
		m := result.Maintenance[name]
		if m.Deprecated {
			printWarning("%s is deprecated: %s", name, m.DeprecationMessage)
		} else {
			printWarning("%s last published %s", name, m.LastPublished.Format("2006-01-02"))
		}
	}
}

// sortedBySeverity orders package names by their highest advisory severity,
// most severe first, breaking ties alphabetically.
func sortedBySeverity(byPackage map[string][]vuln.UnifiedAdvisory) []string {
	maxRank := func(advisories []vuln.UnifiedAdvisory) int {
		rank := 0
		for _, adv := range advisories {
			if r := adv.Severity.Rank(); r > rank {
				rank = r
			}
		}
		return rank
	}

	names := make([]string, 0, len(byPackage))
	for name := range byPackage {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := maxRank(byPackage[names[i]]), maxRank(byPackage[names[j]])
		if ri != rj {
			return ri > rj
		}
		return names[i] < names[j]
	})
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
