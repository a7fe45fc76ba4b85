package sbom

import (
	"bytes"
	"testing"
	"time"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/report"
	"github.com/rtxscan/rtx/internal/severity"
)

func sampleReport() report.Report {
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0", Direct: true}
	finding := policy.Finding{
		Dependency: dep,
		Advisories: []advisory.Advisory{
			{Identifier: "GHSA-1", Source: "osv", Severity: severity.High, Summary: "bad thing"},
		},
	}
	return report.New("/tmp/proj", []string{"pip"}, []policy.Finding{finding}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestGenerateOneComponentPerCoordinate(t *testing.T) {
	rep := sampleReport()
	bom := Generate(rep, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if bom.Components == nil || len(*bom.Components) != 1 {
		t.Fatalf("expected exactly one component, got %v", bom.Components)
	}
	got := (*bom.Components)[0]
	if got.Name != "requests" || got.Version != "2.31.0" {
		t.Fatalf("component = %+v, want requests@2.31.0", got)
	}
}

func TestGenerateVulnerabilityAffectsMatchingComponent(t *testing.T) {
	rep := sampleReport()
	bom := Generate(rep, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if bom.Vulnerabilities == nil || len(*bom.Vulnerabilities) != 1 {
		t.Fatalf("expected exactly one vulnerability, got %v", bom.Vulnerabilities)
	}
	vuln := (*bom.Vulnerabilities)[0]
	if vuln.ID != "GHSA-1" {
		t.Fatalf("vulnerability ID = %q, want GHSA-1", vuln.ID)
	}
	if vuln.Affects == nil || len(*vuln.Affects) != 1 {
		t.Fatalf("expected vulnerability to affect exactly one component ref")
	}
	wantPurl := (*bom.Components)[0].PackageURL
	if (*vuln.Affects)[0].Ref != wantPurl {
		t.Fatalf("vulnerability affects ref = %q, want %q", (*vuln.Affects)[0].Ref, wantPurl)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	rep := sampleReport()
	stamp := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var buf1, buf2 bytes.Buffer
	if err := Encode(&buf1, Generate(rep, stamp)); err != nil {
		t.Fatalf("Encode 1: %v", err)
	}
	if err := Encode(&buf2, Generate(rep, stamp)); err != nil {
		t.Fatalf("Encode 2: %v", err)
	}
	if buf1.String() != buf2.String() {
		t.Fatal("Generate+Encode is not deterministic for identical input")
	}
}

func TestGenerateMergesDuplicateCoordinateAcrossFindings(t *testing.T) {
	dep := depmodel.Dependency{Ecosystem: "npm", Name: "lodash", Version: "4.17.21", Direct: false}
	f1 := policy.Finding{Dependency: dep, Advisories: []advisory.Advisory{{Identifier: "GHSA-a", Source: "osv", Severity: severity.Low}}}
	f2 := policy.Finding{Dependency: dep, Advisories: []advisory.Advisory{{Identifier: "GHSA-a", Source: "osv", Severity: severity.Low}}}
	rep := report.New("/tmp/proj", nil, []policy.Finding{f1, f2}, time.Now())

	bom := Generate(rep, time.Now())
	if len(*bom.Components) != 1 {
		t.Fatalf("expected duplicate coordinates to merge into one component, got %d", len(*bom.Components))
	}
}
