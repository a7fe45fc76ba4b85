package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/severity"
)

func findingWithSignal(coord string, sev severity.Severity, direct bool, ecosystem string) policy.Finding {
	parts := depmodel.Dependency{Ecosystem: ecosystem, Name: coord, Version: "1.0.0", Direct: direct}
	return policy.Finding{
		Dependency: parts,
		Score:      sev.Score(),
		Signals:    []policy.TrustSignal{{Category: policy.CategoryMaturity, Severity: sev}},
	}
}

func TestExitCodeMonotone(t *testing.T) {
	cases := []struct {
		sev  severity.Severity
		want int
	}{
		{severity.None, 0},
		{severity.Low, 0},
		{severity.Medium, 1},
		{severity.High, 2},
		{severity.Critical, 2},
	}
	for _, c := range cases {
		rep := New("/tmp/proj", []string{"gomod"}, []policy.Finding{findingWithSignal("pkg", c.sev, true, "go")}, time.Now())
		if got := rep.ExitCode(); got != c.want {
			t.Errorf("ExitCode() for severity %v = %d, want %d", c.sev, got, c.want)
		}
	}
}

func TestExitCodeTakesHighestAcrossFindings(t *testing.T) {
	rep := New("/tmp/proj", nil, []policy.Finding{
		findingWithSignal("a", severity.Low, true, "go"),
		findingWithSignal("b", severity.Critical, false, "go"),
		findingWithSignal("c", severity.Medium, true, "go"),
	}, time.Now())
	if got := rep.ExitCode(); got != 2 {
		t.Fatalf("ExitCode() = %d, want 2 (highest verdict wins)", got)
	}
}

func TestManagerDedupeCaseInsensitivePreservesFirstSpelling(t *testing.T) {
	rep := New("/tmp/proj", []string{"gomod", "GoMod", "npm"}, nil, time.Now())
	want := []string{"gomod", "npm"}
	if len(rep.Managers) != len(want) {
		t.Fatalf("Managers = %v, want %v", rep.Managers, want)
	}
	for i, m := range want {
		if rep.Managers[i] != m {
			t.Errorf("Managers[%d] = %q, want %q", i, rep.Managers[i], m)
		}
	}
}

func TestStatsCountsDirectIndirectAndEcosystem(t *testing.T) {
	rep := New("/tmp/proj", nil, []policy.Finding{
		findingWithSignal("a", severity.Low, true, "go"),
		findingWithSignal("b", severity.Low, false, "go"),
		findingWithSignal("c", severity.Low, true, "npm"),
	}, time.Now())
	if rep.Stats.Total != 3 || rep.Stats.Direct != 2 || rep.Stats.Indirect != 1 {
		t.Fatalf("Stats = %+v, want Total 3, Direct 2, Indirect 1", rep.Stats)
	}
	if rep.Stats.PerEcosystem["go"] != 2 || rep.Stats.PerEcosystem["npm"] != 1 {
		t.Fatalf("PerEcosystem = %v, want go:2 npm:1", rep.Stats.PerEcosystem)
	}
}

func TestFindingsSortedByCoordinate(t *testing.T) {
	rep := New("/tmp/proj", nil, []policy.Finding{
		findingWithSignal("zzz", severity.Low, true, "go"),
		findingWithSignal("aaa", severity.Low, true, "go"),
	}, time.Now())
	if rep.Findings[0].Dependency.Name != "aaa" || rep.Findings[1].Dependency.Name != "zzz" {
		t.Fatalf("findings not sorted by coordinate: %v", rep.Findings)
	}
}

func TestToJSONRoundTripShape(t *testing.T) {
	finding := findingWithSignal("requests", severity.High, true, "pypi")
	finding.Advisories = []advisory.Advisory{{Identifier: "GHSA-1", Source: "osv", Severity: severity.High}}
	rep := New("/tmp/proj", []string{"pip"}, []policy.Finding{finding}, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	data, err := rep.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var decoded struct {
		Summary struct {
			ID          string    `json:"id"`
			Path        string    `json:"path"`
			Managers    []string  `json:"managers"`
			GeneratedAt time.Time `json:"generated_at"`
			ExitCode    int       `json:"exit_code"`
		} `json:"summary"`
		Findings []struct {
			Dependency string `json:"dependency"`
			Verdict    string `json:"verdict"`
		} `json:"findings"`
		Stats         Stats         `json:"stats"`
		SignalSummary SignalSummary `json:"signal_summary"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if decoded.Summary.Path != "/tmp/proj" {
		t.Errorf("summary.path = %q, want /tmp/proj", decoded.Summary.Path)
	}
	if decoded.Summary.ExitCode != 2 {
		t.Errorf("summary.exit_code = %d, want 2", decoded.Summary.ExitCode)
	}
	if len(decoded.Findings) != 1 || decoded.Findings[0].Verdict != "HIGH" {
		t.Fatalf("findings = %+v, want one HIGH finding", decoded.Findings)
	}
	if len(decoded.SignalSummary.Global) == 0 {
		t.Error("expected a non-empty global signal histogram")
	}
}

func TestToJSONEmptySlicesNotNull(t *testing.T) {
	dep := depmodel.Dependency{Ecosystem: "go", Name: "clean", Version: "1.0.0", Direct: true}
	rep := New("/tmp/proj", nil, []policy.Finding{{Dependency: dep}}, time.Now())
	data, err := rep.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded struct {
		Findings []struct {
			Advisories []advisory.Advisory `json:"advisories"`
			Signals    []policy.TrustSignal `json:"signals"`
		} `json:"findings"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if decoded.Findings[0].Advisories == nil || decoded.Findings[0].Signals == nil {
		t.Fatal("expected empty advisories/signals slices to serialize as [] not null")
	}
}
