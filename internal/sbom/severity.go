package sbom

import (
	cdx "github.com/CycloneDX/cyclonedx-go"

	"github.com/rtxscan/rtx/internal/severity"
)

// toCDXSeverity maps rtx's severity enum to CycloneDX's rating severity.
func toCDXSeverity(s severity.Severity) cdx.Severity {
	switch s {
	case severity.Critical:
		return cdx.SeverityCritical
	case severity.High:
		return cdx.SeverityHigh
	case severity.Medium:
		return cdx.SeverityMedium
	case severity.Low:
		return cdx.SeverityLow
	default:
		return cdx.SeverityNone
	}
}
