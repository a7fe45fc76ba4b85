package advisory

import (
	"context"
	"testing"

	"github.com/rtxscan/rtx/internal/depmodel"
)

func TestFetchAdvisoriesKeysCoverEveryInput(t *testing.T) {
	a, err := New(Config{DisableOSV: true, DisableGitHub: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	deps := []depmodel.Dependency{
		{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"},
		{Ecosystem: "crates", Name: "serde", Version: "1.0.0"},
		{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}, // duplicate coordinate
	}

	out, err := a.FetchAdvisories(context.Background(), deps)
	if err != nil {
		t.Fatalf("FetchAdvisories: %v", err)
	}

	want := map[string]struct{}{
		"pypi:requests@2.31.0": {},
		"crates:serde@1.0.0":   {},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d coordinates, want %d: %v", len(out), len(want), out)
	}
	for coord := range want {
		if _, ok := out[coord]; !ok {
			t.Errorf("missing coordinate %q in result", coord)
		}
	}
}

func TestFetchAdvisoriesServesFromCacheWithoutSources(t *testing.T) {
	a, err := New(Config{DisableOSV: true, DisableGitHub: true, CacheSize: 8})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}
	seeded := []Advisory{{Identifier: "GHSA-x", Source: "osv"}}
	a.cache.Add(dep.Coordinate(), seeded)

	out, err := a.FetchAdvisories(context.Background(), []depmodel.Dependency{dep})
	if err != nil {
		t.Fatalf("FetchAdvisories: %v", err)
	}
	if len(out[dep.Coordinate()]) != 1 || out[dep.Coordinate()][0].Identifier != "GHSA-x" {
		t.Fatalf("expected cached advisory to be returned verbatim, got %v", out[dep.Coordinate()])
	}
}

func TestClearCacheEmptiesLRU(t *testing.T) {
	a, err := New(Config{CacheSize: 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.cache.Add("pypi:requests@2.31.0", []Advisory{{Identifier: "GHSA-x"}})
	a.ClearCache()
	if a.cache.Len() != 0 {
		t.Fatalf("expected empty cache after ClearCache, got %d entries", a.cache.Len())
	}
}
