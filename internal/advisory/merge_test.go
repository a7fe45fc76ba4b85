package advisory

import (
	"reflect"
	"testing"

	"github.com/rtxscan/rtx/internal/severity"
)

func TestMergeNeverLowersSeverity(t *testing.T) {
	in := []Advisory{
		{Identifier: "GHSA-1", Source: "osv", Severity: severity.Low, Summary: "low summary", References: []string{"u1"}},
		{Identifier: "GHSA-1", Source: "osv", Severity: severity.High, Summary: "high summary", References: []string{"u2", "u1"}},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("expected one merged advisory, got %d", len(out))
	}
	if out[0].Severity != severity.High {
		t.Fatalf("merged severity = %v, want %v", out[0].Severity, severity.High)
	}
	if out[0].Summary != "high summary" {
		t.Fatalf("merged summary = %q, want the higher-severity record's summary", out[0].Summary)
	}
	if want := []string{"u1", "u2"}; !reflect.DeepEqual(out[0].References, want) {
		t.Fatalf("merged references = %v, want %v", out[0].References, want)
	}
}

func TestMergeDistinctKeysNotGrouped(t *testing.T) {
	in := []Advisory{
		{Identifier: "A", Source: "osv", Severity: severity.Critical},
		{Identifier: "B", Source: "osv", Severity: severity.Low},
	}
	out := Merge(in)
	if len(out) != 2 {
		t.Fatalf("expected two distinct advisories, got %d", len(out))
	}
	if out[0].Identifier != "A" {
		t.Fatalf("expected highest-severity advisory first, got %q", out[0].Identifier)
	}
}

func TestMergeOrderedBySeverityThenSourceThenIdentifier(t *testing.T) {
	in := []Advisory{
		{Identifier: "Z", Source: "osv", Severity: severity.Medium},
		{Identifier: "A", Source: "github", Severity: severity.Medium},
		{Identifier: "B", Source: "osv", Severity: severity.Critical},
	}
	out := Merge(in)
	if len(out) != 3 {
		t.Fatalf("expected three advisories, got %d", len(out))
	}
	if out[0].Identifier != "B" {
		t.Fatalf("expected critical advisory first, got %q", out[0].Identifier)
	}
	if out[1].Source != "github" || out[2].Source != "osv" {
		t.Fatalf("expected ties broken by source ascending, got %q then %q", out[1].Source, out[2].Source)
	}
}
