package vuln

import (
	"sort"
	"strings"
)

// Merge combines advisories from multiple sources into one canonical list.
//
// Advisories are joined by id equality, nothing fuzzier: two records
// describe the same vulnerability iff their ID strings are equal. CVE
// aliases are never cross-matched once ids differ.
//
// On first occurrence an advisory is stored verbatim with a one-element
// source set. On a repeat occurrence from another source:
//   - the source set gains the new name
//   - severity is replaced only if the incoming one outranks the stored one
//   - summary and details are filled only when the stored value is empty
//
// Output preserves insertion order of first occurrence. Sorting by
// severity for display is the renderer's concern, not the merge step's.
func Merge(lists ...[]Advisory) []UnifiedAdvisory {
	byID := make(map[string]*UnifiedAdvisory)
	sources := make(map[string]map[string]bool)
	var order []string

	for _, list := range lists {
		for _, adv := range list {
			existing, ok := byID[adv.ID]
			if !ok {
				u := UnifiedAdvisory{
					ID:                  adv.ID,
					Severity:            adv.Severity,
					Summary:             adv.Summary,
					Details:             adv.Details,
					References:          adv.References,
					FirstPatchedVersion: adv.FirstPatchedVersion,
					CVEIDs:              adv.CVEIDs,
					VulnerableRange:     adv.VulnerableRange,
				}
				byID[adv.ID] = &u
				sources[adv.ID] = map[string]bool{adv.Source: true}
				order = append(order, adv.ID)
				continue
			}

			sources[adv.ID][adv.Source] = true
			if adv.Severity.Rank() > existing.Severity.Rank() {
				existing.Severity = adv.Severity
			}
			if existing.Summary == "" && adv.Summary != "" {
				existing.Summary = adv.Summary
			}
			if existing.Details == "" && adv.Details != "" {
				existing.Details = adv.Details
			}
			if existing.FirstPatchedVersion == "" && adv.FirstPatchedVersion != "" {
				existing.FirstPatchedVersion = adv.FirstPatchedVersion
			}
			if len(existing.CVEIDs) == 0 && len(adv.CVEIDs) > 0 {
				existing.CVEIDs = adv.CVEIDs
			}
			if len(existing.References) == 0 && len(adv.References) > 0 {
				existing.References = adv.References
			}
		}
	}

	merged := make([]UnifiedAdvisory, 0, len(order))
	for _, id := range order {
		u := byID[id]
		u.Sources = joinSources(sources[id])
		merged = append(merged, *u)
	}
	return merged
}

// joinSources serializes a source set as a sorted, comma-joined string.
func joinSources(set map[string]bool) string {
	names := make([]string, 0, len(set))
	for name := range set {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
