package advisory

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rtxscan/rtx/internal/severity"
)

var decimalRE = regexp.MustCompile(`\d+(\.\d+)?`)

// osvSeverityFromScore extracts a numeric score from an OSV severity.score
// field, which may be a bare number or a CVSS vector string, and maps it
// to a Severity.
func osvSeverityFromScore(raw string) (severity.Severity, bool) {
	if strings.HasPrefix(strings.TrimSpace(raw), "CVSS:") {
		// A CVSS vector string (e.g. "CVSS:3.1/AV:N/AC:L/...") leads with
		// the CVSS spec version, not a score; decimalRE would otherwise
		// extract that version number and misreport it as the severity.
		return severity.None, false
	}
	m := decimalRE.FindString(raw)
	if m == "" {
		return severity.None, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return severity.None, false
	}
	switch {
	case v >= 9:
		return severity.Critical, true
	case v >= 7:
		return severity.High, true
	case v >= 4:
		return severity.Medium, true
	case v > 0:
		return severity.Low, true
	default:
		return severity.None, true
	}
}

// osvSeverityFromLabel maps the database_specific.severity label used as a
// fallback when no numeric score is present.
func osvSeverityFromLabel(label string) severity.Severity {
	return severity.Parse(label)
}

// githubSeverityFromLabel maps a GitHub Security Advisory severity label.
// Unknown or missing labels default to LOW.
func githubSeverityFromLabel(label string) severity.Severity {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "critical":
		return severity.Critical
	case "high":
		return severity.High
	case "moderate", "medium":
		return severity.Medium
	case "low":
		return severity.Low
	default:
		return severity.Low
	}
}
