package ghsa

// Wire types for the GraphQL securityVulnerabilities query.

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data struct {
		SecurityVulnerabilities struct {
			Nodes []vulnerabilityNode `json:"nodes"`
		} `json:"securityVulnerabilities"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type vulnerabilityNode struct {
	VulnerableVersionRange string          `json:"vulnerableVersionRange"`
	FirstPatchedVersion    *patchedVersion `json:"firstPatchedVersion"`
	Advisory               advisoryNode    `json:"advisory"`
}

type patchedVersion struct {
	Identifier string `json:"identifier"`
}

type advisoryNode struct {
	GHSAID      string       `json:"ghsaId"`
	Summary     string       `json:"summary"`
	Description string       `json:"description"`
	Severity    string       `json:"severity"`
	References  []reference  `json:"references"`
	Identifiers []identifier `json:"identifiers"`
}

type reference struct {
	URL string `json:"url"`
}

type identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
