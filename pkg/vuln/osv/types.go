package osv

// Wire types for the OSV v1 API. Only the fields the scanner consumes are
// declared; everything else in the response is ignored by the decoder.

type batchRequest struct {
	Queries []query `json:"queries"`
}

type query struct {
	Package pkg    `json:"package"`
	Version string `json:"version,omitempty"`
}

type pkg struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
}

type batchResponse struct {
	Results []result `json:"results"`
}

type result struct {
	Vulns []vulnerability `json:"vulns"`
}

type queryResponse struct {
	Vulns []vulnerability `json:"vulns"`
}

type vulnerability struct {
	ID         string      `json:"id"`
	Summary    string      `json:"summary"`
	Details    string      `json:"details"`
	Aliases    []string    `json:"aliases"`
	References []reference `json:"references"`
	Affected   []affected  `json:"affected"`

	// database_specific carries a plain severity label for most GitHub
	// sourced records; the CVSS vector array is not parsed.
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
}

type reference struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type affected struct {
	Ranges []affectedRange `json:"ranges"`
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
}

type affectedRange struct {
	Type   string  `json:"type"`
	Events []event `json:"events"`
}

type event struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}
