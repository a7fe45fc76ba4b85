package sbom

import (
	"sort"
	"strings"

	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/severity"
)

// componentGroup is one coordinate's merged view across every finding
// that shares it (only possible pre-dedup; post-orchestrator dedup this
// is always a single finding, but the merge rule is kept general).
type componentGroup struct {
	coordinate string
	ecosystem  string
	name       string
	version    string
	scope      string
	licenses   []licenseEntry
}

type licenseEntry struct {
	key  string
	id   string
	name string
}

// groupComponents groups findings by coordinate and computes each
// group's merged scope and license list.
func groupComponents(findings []policy.Finding) []componentGroup {
	byCoord := make(map[string]*componentGroup)
	var order []string
	directByCoord := make(map[string]bool)

	for _, f := range findings {
		coord := f.Dependency.Coordinate()
		if _, ok := byCoord[coord]; !ok {
			byCoord[coord] = &componentGroup{
				coordinate: coord,
				ecosystem:  f.Dependency.Ecosystem,
				name:       f.Dependency.Name,
				version:    f.Dependency.Version,
			}
			order = append(order, coord)
		}
		if f.Dependency.Direct {
			directByCoord[coord] = true
		}
		byCoord[coord].licenses = mergeLicenses(byCoord[coord].licenses, extractLicense(f.Dependency.Metadata))
	}

	out := make([]componentGroup, 0, len(order))
	for _, coord := range order {
		g := byCoord[coord]
		if directByCoord[coord] {
			g.scope = "required"
		} else {
			g.scope = "optional"
		}
		if len(g.licenses) == 0 {
			g.licenses = []licenseEntry{{key: "UNKNOWN", id: "UNKNOWN"}}
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].coordinate < out[j].coordinate })
	return out
}

// extractLicense reads a dependency's "license" metadata entry, which
// may be a bare string or a mapping with id/name.
func extractLicense(metadata map[string]any) []licenseEntry {
	raw, ok := metadata["license"]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		return []licenseEntry{{key: s, id: s}}
	case map[string]any:
		if id, ok := v["id"].(string); ok && id != "" {
			return []licenseEntry{{key: id, id: id}}
		}
		if name, ok := v["name"].(string); ok && name != "" {
			return []licenseEntry{{key: name, name: name}}
		}
		return nil
	default:
		return nil
	}
}

func mergeLicenses(existing []licenseEntry, incoming []licenseEntry) []licenseEntry {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing))
	for _, l := range existing {
		seen[l.key] = struct{}{}
	}
	out := existing
	for _, l := range incoming {
		if _, ok := seen[l.key]; ok {
			continue
		}
		seen[l.key] = struct{}{}
		out = append(out, l)
	}
	return out
}

// vulnGroup is one (source,identifier)'s merged view across every
// component it affects.
type vulnGroup struct {
	source      string
	identifier  string
	severity    severity.Severity
	description string
	affects     []string
	references  []string
}

// groupVulnerabilities merges advisories keyed by (source, identifier)
// across all findings, unioning affected component PURLs and references.
func groupVulnerabilities(findings []policy.Finding) []vulnGroup {
	byKey := make(map[string]*vulnGroup)
	var order []string

	for _, f := range findings {
		purl := buildPURL(f.Dependency.Ecosystem, f.Dependency.Name, f.Dependency.Version)
		for _, a := range f.Advisories {
			key := a.Source + "\x00" + a.Identifier
			g, ok := byKey[key]
			if !ok {
				g = &vulnGroup{source: a.Source, identifier: a.Identifier}
				byKey[key] = g
				order = append(order, key)
			}
			if a.Severity > g.severity {
				g.severity = a.Severity
			}
			if g.description == "" && a.Summary != "" {
				g.description = a.Summary
			}
			g.affects = appendUnique(g.affects, purl)
			for _, ref := range a.References {
				g.references = appendUnique(g.references, ref)
			}
		}
	}

	out := make([]vulnGroup, 0, len(order))
	for _, key := range order {
		g := *byKey[key]
		sort.Strings(g.affects)
		sort.Strings(g.references)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].source != out[j].source {
			return out[i].source < out[j].source
		}
		return out[i].identifier < out[j].identifier
	})
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
