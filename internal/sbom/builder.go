package sbom

import (
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/rtxscan/rtx/internal/report"
)

// Generate builds a CycloneDX 1.5 BOM document from a Report, merging
// components and vulnerabilities by coordinate / (source,identifier).
// Generation is deterministic given identical input.
func Generate(rep report.Report, generatedAt time.Time) *cdx.BOM {
	bom := cdx.NewBOM()
	bom.SpecVersion = cdx.SpecVersion1_5
	bom.Metadata = &cdx.Metadata{
		Timestamp: generatedAt.UTC().Format(time.RFC3339),
		Tools: &cdx.ToolsChoice{
			Components: &[]cdx.Component{
				{Type: cdx.ComponentTypeApplication, Name: "rtx", Version: "dev"},
			},
		},
	}

	groups := groupComponents(rep.Findings)
	components := make([]cdx.Component, 0, len(groups))
	for _, g := range groups {
		purl := buildPURL(g.ecosystem, g.name, g.version)
		licenses := make(cdx.Licenses, 0, len(g.licenses))
		for _, l := range g.licenses {
			lic := &cdx.License{}
			if l.id != "" {
				lic.ID = l.id
			} else {
				lic.Name = l.name
			}
			licenses = append(licenses, cdx.LicenseChoice{License: lic})
		}
		components = append(components, cdx.Component{
			BOMRef:     purl,
			Type:       cdx.ComponentTypeLibrary,
			Name:       g.name,
			Version:    g.version,
			PackageURL: purl,
			Scope:      cdx.Scope(g.scope),
			Licenses:   &licenses,
		})
	}
	bom.Components = &components

	vgroups := groupVulnerabilities(rep.Findings)
	vulns := make([]cdx.Vulnerability, 0, len(vgroups))
	for _, v := range vgroups {
		affects := make([]cdx.Affects, 0, len(v.affects))
		for _, purl := range v.affects {
			affects = append(affects, cdx.Affects{Ref: purl})
		}
		refs := make([]cdx.VulnerabilityReference, 0, len(v.references))
		for _, url := range v.references {
			refs = append(refs, cdx.VulnerabilityReference{URL: url})
		}
		vulns = append(vulns, cdx.Vulnerability{
			ID:          v.identifier,
			Source:      &cdx.Source{Name: v.source},
			Description: v.description,
			Ratings: &[]cdx.VulnerabilityRating{
				{Severity: toCDXSeverity(v.severity)},
			},
			Affects:    &affects,
			References: &refs,
		})
	}
	bom.Vulnerabilities = &vulns

	return bom
}
