package advisory

import (
	"testing"

	"github.com/rtxscan/rtx/internal/severity"
)

func TestOSVSeverityFromScoreCVSSVectorIsNotNumeric(t *testing.T) {
	_, ok := osvSeverityFromScore("CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H")
	if ok {
		t.Fatal("a CVSS vector string must not be treated as a numeric score, to let the label fallback run")
	}
}

func TestOSVSeverityFromScoreBareNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want severity.Severity
	}{
		{"9.8", severity.Critical},
		{"7.5", severity.High},
		{"5.0", severity.Medium},
		{"1.0", severity.Low},
		{"0", severity.None},
	}
	for _, c := range cases {
		got, ok := osvSeverityFromScore(c.raw)
		if !ok {
			t.Fatalf("osvSeverityFromScore(%q) ok = false, want true", c.raw)
		}
		if got != c.want {
			t.Errorf("osvSeverityFromScore(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestToAdvisoryFallsBackToLabelForCVSSVectorScore(t *testing.T) {
	v := osvVuln{ID: "GHSA-1"}
	v.Severity = append(v.Severity, struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	}{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"})
	v.DatabaseSpecific.Severity = "CRITICAL"

	got := v.toAdvisory()
	if got.Severity != severity.Critical {
		t.Fatalf("severity = %v, want CRITICAL from the database_specific.severity label fallback", got.Severity)
	}
}
