// Package orchestrator implements the Scan Orchestrator: it drives the
// scanner fan-out, deduplicates dependencies, fetches advisories,
// analyzes every dependency under bounded concurrency, and assembles a
// Report.
package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/quay/zlog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/report"
	"github.com/rtxscan/rtx/internal/scanner"
)

// aggregator is the subset of advisory.Aggregator the Orchestrator needs.
type aggregator interface {
	FetchAdvisories(ctx context.Context, deps []depmodel.Dependency) (map[string][]advisory.Advisory, error)
}

// engine is the subset of policy.Engine the Orchestrator needs.
type engine interface {
	Analyze(ctx context.Context, dep depmodel.Dependency, advisories []advisory.Advisory) (policy.Finding, error)
}

// Orchestrator drives scanners, dedup, advisory lookup, and policy
// analysis into a single Report.
type Orchestrator struct {
	scanners          map[string]scanner.Factory
	aliases           map[string]string
	advisories        aggregator
	policy            engine
	policyConcurrency int64
	now               func() time.Time
}

// New builds an Orchestrator over the given scanner registry snapshot.
// aliases maps every alias-or-canonical-name (case-folded) to its
// canonical scanner name; pass scanner.Aliases() in production.
func New(scanners map[string]scanner.Factory, aliases map[string]string, advisories aggregator, policy engine, policyConcurrency int64) *Orchestrator {
	if policyConcurrency <= 0 {
		policyConcurrency = int64(runtime.NumCPU())
		if policyConcurrency > 32 {
			policyConcurrency = 32
		}
		if policyConcurrency < 1 {
			policyConcurrency = 1
		}
	}
	return &Orchestrator{
		scanners:          scanners,
		aliases:           aliases,
		policyConcurrency: policyConcurrency,
		advisories:        advisories,
		policy:            policy,
		now:               time.Now,
	}
}

// Scan resolves root, selects and runs scanners, dedups dependencies,
// fetches advisories, runs policy analysis, and returns the Report. If
// managers is nil, only scanners whose Matches(root) holds are run; if
// non-nil, exactly the named (alias-normalized) scanners run.
func (o *Orchestrator) Scan(ctx context.Context, root string, managers []string) (report.Report, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "orchestrator/Orchestrator")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return report.Report{}, fmt.Errorf("orchestrator: resolve root: %w", err)
	}

	selected, forceRun, err := o.selectScanners(managers)
	if err != nil {
		return report.Report{}, err
	}

	results, names := o.runScanners(ctx, absRoot, selected, forceRun)

	deps, relationships := collect(results)
	if len(deps) == 0 {
		return report.Report{}, &errs.Error{Op: "orchestrator.Scan", Kind: errs.ErrManifestNotFound}
	}

	merged := dedup(deps)

	uniqueDeps := make([]depmodel.Dependency, 0, len(merged))
	for _, d := range merged {
		uniqueDeps = append(uniqueDeps, d)
	}

	advisoriesByCoord, err := o.advisories.FetchAdvisories(ctx, uniqueDeps)
	if err != nil {
		return report.Report{}, err
	}

	findings, err := o.analyzeAll(ctx, uniqueDeps, advisoriesByCoord)
	if err != nil {
		return report.Report{}, err
	}

	g := buildGraph(findings, relationships)
	rep := report.New(absRoot, names, findings, o.now())
	rep.Stats.GraphNodes = g.NodeCount()
	rep.Stats.GraphEdges = g.EdgeCount()
	return rep, nil
}

// AnalyzeOne fetches advisories and runs policy analysis for a single
// ad-hoc dependency, bypassing scanning and dedup entirely. It exists for
// callers that already know the exact coordinate they want evaluated (for
// example, checking a version bump before adopting it).
func (o *Orchestrator) AnalyzeOne(ctx context.Context, dep depmodel.Dependency) (policy.Finding, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "orchestrator/Orchestrator")
	advisoriesByCoord, err := o.advisories.FetchAdvisories(ctx, []depmodel.Dependency{dep})
	if err != nil {
		return policy.Finding{}, err
	}
	return o.policy.Analyze(ctx, dep, advisoriesByCoord[dep.Coordinate()])
}

// selectScanners resolves which scanners run. When managers is nil, every
// registered scanner is a candidate and only those whose Matches(root)
// holds are actually run (forceRun=false). When managers is an explicit,
// alias-normalized, case-folded-deduplicated list, exactly those
// scanners run regardless of Matches (forceRun=true); an unknown name
// fails with ErrUsage listing offenders in input order.
func (o *Orchestrator) selectScanners(managers []string) ([]scanner.Scanner, bool, error) {
	if managers == nil {
		var names []string
		for name := range o.scanners {
			names = append(names, name)
		}
		sort.Strings(names) // deterministic iteration for the auto-match path
		var selected []scanner.Scanner
		for _, name := range names {
			selected = append(selected, o.scanners[name]())
		}
		return selected, false, nil
	}

	var offenders []string
	seen := make(map[string]struct{})
	var selected []scanner.Scanner
	for _, requested := range managers {
		canonical, ok := o.resolve(requested)
		if !ok {
			offenders = append(offenders, requested)
			continue
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		selected = append(selected, o.scanners[canonical]())
	}
	if len(offenders) > 0 {
		return nil, false, &errs.Error{
			Op:      "orchestrator.selectScanners",
			Kind:    errs.ErrUsage,
			Message: "unknown manager(s): " + strings.Join(offenders, ", "),
		}
	}
	return selected, true, nil
}

// resolve case-folds and alias-normalizes a requested manager name to its
// canonical registered scanner name.
func (o *Orchestrator) resolve(name string) (string, bool) {
	key := strings.ToLower(name)
	if o.aliases != nil {
		if canonical, ok := o.aliases[key]; ok {
			if _, known := o.scanners[canonical]; known {
				return canonical, true
			}
		}
		return "", false
	}
	if _, ok := o.scanners[key]; ok {
		return key, true
	}
	return "", false
}

// runScanners runs every selected scanner in parallel.
// forceRun, when true (an explicit manager list was given), runs every
// scanner regardless of Matches(root); otherwise only matching scanners
// are run.
func (o *Orchestrator) runScanners(ctx context.Context, root string, scanners []scanner.Scanner, forceRun bool) ([]scanner.Result, []string) {
	g, gctx := errgroup.WithContext(ctx)
	results := make([]scanner.Result, len(scanners))
	ran := make([]bool, len(scanners))
	names := make([]string, len(scanners))

	for i, s := range scanners {
		i, s := i, s
		names[i] = s.Manager()
		g.Go(func() error {
			if !forceRun && !s.Matches(root) {
				return nil
			}
			ran[i] = true
			res, err := s.Scan(gctx, root)
			if err != nil {
				zlog.Warn(gctx).Err(err).Str("manager", s.Manager()).Msg("orchestrator: scanner failed, skipping")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var out []scanner.Result
	var usedNames []string
	for i := range scanners {
		if ran[i] {
			out = append(out, results[i])
			usedNames = append(usedNames, names[i])
		}
	}
	return out, usedNames
}

func collect(results []scanner.Result) ([]depmodel.Dependency, []depmodel.Relationship) {
	var deps []depmodel.Dependency
	var rels []depmodel.Relationship
	for _, r := range results {
		deps = append(deps, r.Dependencies...)
		rels = append(rels, r.Relationships...)
	}
	return deps, rels
}

// dedup folds duplicate dependencies by coordinate using depmodel.Merge.
func dedup(deps []depmodel.Dependency) map[string]depmodel.Dependency {
	out := make(map[string]depmodel.Dependency, len(deps))
	for _, d := range deps {
		coord := d.Coordinate()
		if existing, ok := out[coord]; ok {
			out[coord] = depmodel.Merge(existing, d)
		} else {
			out[coord] = d
		}
	}
	return out
}

// analyzeAll analyzes every dependency concurrently
// under a bounded semaphore, preserving input order via a pre-sized
// result slice.
func (o *Orchestrator) analyzeAll(ctx context.Context, deps []depmodel.Dependency, advisoriesByCoord map[string][]advisory.Advisory) ([]policy.Finding, error) {
	findings := make([]policy.Finding, len(deps))
	ok := make([]bool, len(deps))
	sem := semaphore.NewWeighted(o.policyConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	for i, d := range deps {
		i, d := i, d
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			f, err := o.policy.Analyze(gctx, d, advisoriesByCoord[d.Coordinate()])
			if err != nil {
				// Per-item policy failures must not abort sibling
				// analyses; the finding is omitted and the error logged.
				zlog.Warn(gctx).Err(err).Str("coordinate", d.Coordinate()).Msg("orchestrator: policy analysis failed, omitting finding")
				return nil
			}
			findings[i] = f
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]policy.Finding, 0, len(findings))
	for i, present := range ok {
		if present {
			out = append(out, findings[i])
		}
	}
	return out, nil
}

// buildGraph builds the dependency graph: one node per finding, edges filtered to
// existing nodes.
func buildGraph(findings []policy.Finding, relationships []depmodel.Relationship) *Graph {
	g := NewGraph()
	for _, f := range findings {
		g.AddNode(f.Dependency.Coordinate(), nodeAttrs{
			Ecosystem: f.Dependency.Ecosystem,
			Direct:    f.Dependency.Direct,
			Manifest:  f.Dependency.Manifest,
		})
	}
	for _, r := range relationships {
		g.AddEdge(r.Src, r.Dst)
	}
	return g
}
