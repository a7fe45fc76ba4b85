package policy

import (
	"embed"
	"encoding/json"
	"strings"
)

//go:embed data/top_packages.json data/compromised_maintainers.json
var embeddedResources embed.FS

// CompromisedEntry is one record of the compromise index.
type CompromisedEntry struct {
	Ecosystem string `json:"ecosystem"`
	Package   string `json:"package"`
	Reference string `json:"reference"`
}

// loadTopPackages reads the default embedded top_packages.json resource.
func loadTopPackages() (map[string][]string, error) {
	raw, err := embeddedResources.ReadFile("data/top_packages.json")
	if err != nil {
		return nil, err
	}
	var out map[string][]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadCompromisedMaintainers reads the default embedded
// compromised_maintainers.json resource and indexes it by
// (ecosystem, case-folded package).
func loadCompromisedMaintainers() (map[string]CompromisedEntry, error) {
	raw, err := embeddedResources.ReadFile("data/compromised_maintainers.json")
	if err != nil {
		return nil, err
	}
	var entries []CompromisedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make(map[string]CompromisedEntry, len(entries))
	for _, e := range entries {
		out[compromiseKey(e.Ecosystem, e.Package)] = e
	}
	return out, nil
}

func compromiseKey(ecosystem, pkg string) string {
	return strings.ToLower(ecosystem) + ":" + strings.ToLower(pkg)
}
