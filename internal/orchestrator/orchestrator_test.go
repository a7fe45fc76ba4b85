package orchestrator

import (
	"context"
	"testing"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/scanner"
)

type fakeScanner struct {
	manager   string
	ecosystem string
	matches   bool
	result    scanner.Result
	err       error
}

func (f fakeScanner) Manager() string       { return f.manager }
func (f fakeScanner) Manifests() []string   { return nil }
func (f fakeScanner) Ecosystem() string     { return f.ecosystem }
func (f fakeScanner) Matches(string) bool   { return f.matches }
func (f fakeScanner) Scan(context.Context, string) (scanner.Result, error) {
	return f.result, f.err
}

type fakeAggregator struct {
	calls int
	resp  map[string][]advisory.Advisory
}

func (f *fakeAggregator) FetchAdvisories(_ context.Context, deps []depmodel.Dependency) (map[string][]advisory.Advisory, error) {
	f.calls++
	out := make(map[string][]advisory.Advisory, len(deps))
	for _, d := range deps {
		out[d.Coordinate()] = f.resp[d.Coordinate()]
	}
	return out, nil
}

type fakeEngine struct{}

func (fakeEngine) Analyze(_ context.Context, dep depmodel.Dependency, advisories []advisory.Advisory) (policy.Finding, error) {
	return policy.Finding{Dependency: dep, Advisories: advisories}, nil
}

func depResult(coord string, manager string) scanner.Result {
	d := depmodel.Dependency{Ecosystem: "go", Name: coord, Version: "1.0.0", Direct: true, Manifest: manager}
	return scanner.Result{Dependencies: []depmodel.Dependency{d}}
}

func TestScanDedupsDuplicateCoordinatesAcrossScanners(t *testing.T) {
	factories := map[string]scanner.Factory{
		"gomod": func() scanner.Scanner {
			return fakeScanner{manager: "gomod", ecosystem: "go", matches: true, result: depResult("dup", "go.mod")}
		},
		"npm": func() scanner.Scanner {
			return fakeScanner{manager: "npm", ecosystem: "go", matches: true, result: depResult("dup", "package.json")}
		},
	}
	aliases := map[string]string{"gomod": "gomod", "npm": "npm"}
	agg := &fakeAggregator{resp: map[string][]advisory.Advisory{}}
	o := New(factories, aliases, agg, fakeEngine{}, 4)

	rep, err := o.Scan(context.Background(), t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rep.Findings) != 1 {
		t.Fatalf("expected duplicate coordinate to dedup to one finding, got %d", len(rep.Findings))
	}
}

func TestScanResolvesAliasesToCanonicalScanner(t *testing.T) {
	factories := map[string]scanner.Factory{
		"gomod": func() scanner.Scanner {
			return fakeScanner{manager: "gomod", ecosystem: "go", matches: false, result: depResult("a", "go.mod")}
		},
	}
	aliases := map[string]string{"gomod": "gomod", "go": "gomod"}
	agg := &fakeAggregator{resp: map[string][]advisory.Advisory{}}
	o := New(factories, aliases, agg, fakeEngine{}, 4)

	// "go" is an alias, not the canonical registered name; matches=false
	// on the scanner would normally skip it, but an explicit manager
	// request must force it to run regardless.
	rep, err := o.Scan(context.Background(), t.TempDir(), []string{"go"})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rep.Findings) != 1 {
		t.Fatalf("expected alias-resolved scanner to run, got %d findings", len(rep.Findings))
	}
}

func TestScanUnknownManagerIsUsageError(t *testing.T) {
	factories := map[string]scanner.Factory{
		"gomod": func() scanner.Scanner { return fakeScanner{manager: "gomod", ecosystem: "go", matches: true} },
	}
	aliases := map[string]string{"gomod": "gomod"}
	agg := &fakeAggregator{}
	o := New(factories, aliases, agg, fakeEngine{}, 4)

	_, err := o.Scan(context.Background(), t.TempDir(), []string{"bogus"})
	var e *errs.Error
	if err == nil {
		t.Fatal("expected an error for an unknown manager name")
	}
	if !asErrsError(err, &e) || e.Kind != errs.ErrUsage {
		t.Fatalf("expected ErrUsage, got %v", err)
	}
}

func TestScanNoManifestsFound(t *testing.T) {
	factories := map[string]scanner.Factory{
		"gomod": func() scanner.Scanner {
			return fakeScanner{manager: "gomod", ecosystem: "go", matches: true, result: scanner.Result{}}
		},
	}
	aliases := map[string]string{"gomod": "gomod"}
	agg := &fakeAggregator{}
	o := New(factories, aliases, agg, fakeEngine{}, 4)

	_, err := o.Scan(context.Background(), t.TempDir(), nil)
	var e *errs.Error
	if !asErrsError(err, &e) || e.Kind != errs.ErrManifestNotFound {
		t.Fatalf("expected ErrManifestNotFound, got %v", err)
	}
}

func TestAnalyzeOneBypassesScanning(t *testing.T) {
	agg := &fakeAggregator{resp: map[string][]advisory.Advisory{
		"go:widget@1.2.3": {{Identifier: "GHSA-z", Source: "osv"}},
	}}
	o := New(nil, nil, agg, fakeEngine{}, 4)

	dep := depmodel.Dependency{Ecosystem: "go", Name: "widget", Version: "1.2.3", Direct: true}
	finding, err := o.AnalyzeOne(context.Background(), dep)
	if err != nil {
		t.Fatalf("AnalyzeOne: %v", err)
	}
	if len(finding.Advisories) != 1 || finding.Advisories[0].Identifier != "GHSA-z" {
		t.Fatalf("finding.Advisories = %v, want one GHSA-z advisory", finding.Advisories)
	}
	if agg.calls != 1 {
		t.Fatalf("expected exactly one FetchAdvisories call, got %d", agg.calls)
	}
}

func asErrsError(err error, target **errs.Error) bool {
	e, ok := err.(*errs.Error)
	if ok {
		*target = e
	}
	return ok
}
