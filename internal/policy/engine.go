package policy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quay/zlog"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/severity"
)

// metadataFetcher is the subset of registry.Resolver the Engine depends
// on, kept as an interface so tests can substitute a fake.
type metadataFetcher interface {
	Fetch(ctx context.Context, dep depmodel.Dependency) (depmodel.ReleaseMetadata, error)
}

// Thresholds holds every construction-time policy configuration
// parameter.
type Thresholds struct {
	AbandonmentDays     int
	ChurnHigh           int
	ChurnMedium         int
	BusFactorZero       int
	BusFactorOne        int
	LowMaturityMinimum  int
	TyposquatMaxDistance int
}

// DefaultThresholds returns the shipped default thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AbandonmentDays:      365,
		ChurnHigh:            10,
		ChurnMedium:          5,
		BusFactorZero:        0,
		BusFactorOne:         1,
		LowMaturityMinimum:   3,
		TyposquatMaxDistance: 2,
	}
}

// Engine derives trust signals from metadata and advisories and scores
// each dependency into a Finding.
type Engine struct {
	resolver     metadataFetcher
	thresholds   Thresholds
	topPackages  map[string][]string
	compromised  map[string]CompromisedEntry
	now          func() time.Time
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithTopPackages overrides the embedded typosquat reference list, for
// tests.
func WithTopPackages(top map[string][]string) Option {
	return func(e *Engine) { e.topPackages = top }
}

// WithCompromisedMaintainers overrides the embedded compromise index, for
// tests.
func WithCompromisedMaintainers(idx map[string]CompromisedEntry) Option {
	return func(e *Engine) { e.compromised = idx }
}

// WithClock overrides the engine's notion of "now", for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New constructs an Engine, loading the static resources (top_packages.json,
// compromised_maintainers.json) once at construction.
func New(resolver metadataFetcher, thresholds Thresholds, opts ...Option) (*Engine, error) {
	e := &Engine{resolver: resolver, thresholds: thresholds, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.topPackages == nil {
		top, err := loadTopPackages()
		if err != nil {
			return nil, fmt.Errorf("policy: load top_packages.json: %w", err)
		}
		e.topPackages = top
	}
	if e.compromised == nil {
		idx, err := loadCompromisedMaintainers()
		if err != nil {
			return nil, fmt.Errorf("policy: load compromised_maintainers.json: %w", err)
		}
		e.compromised = idx
	}
	return e, nil
}

// Analyze fetches release metadata for dep, derives trust signals, and
// scores the dependency into a Finding.
func (e *Engine) Analyze(ctx context.Context, dep depmodel.Dependency, advisories []advisory.Advisory) (Finding, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "policy/Engine")
	meta, err := e.resolver.Fetch(ctx, dep)
	if err != nil {
		zlog.Warn(ctx).Err(err).Str("coordinate", dep.Coordinate()).Msg("policy: metadata fetch failed")
		return Finding{}, fmt.Errorf("policy: fetch metadata for %s: %w", dep.Coordinate(), err)
	}

	signals := e.deriveSignals(dep, meta)

	maxScore := 0.0
	for _, a := range advisories {
		if s := a.Severity.Score(); s > maxScore {
			maxScore = s
		}
	}
	for _, s := range signals {
		if v := s.Severity.Score(); v > maxScore {
			maxScore = v
		}
	}
	if maxScore > 1 {
		maxScore = 1
	}

	return Finding{
		Dependency: dep,
		Advisories: advisory.Merge(advisories),
		Signals:    signals,
		Score:      maxScore,
	}, nil
}

// deriveSignals evaluates every signal category in fixed
// order, emitting 0 or 1 instance of each.
func (e *Engine) deriveSignals(dep depmodel.Dependency, meta depmodel.ReleaseMetadata) []TrustSignal {
	var signals []TrustSignal
	now := e.now()

	if meta.LatestRelease == nil {
		signals = append(signals, TrustSignal{
			Category: CategoryReleaseMetadata,
			Severity: severity.Medium,
			Message:  "no release metadata available",
		})
	}

	if meta.IsAbandoned(e.thresholds.AbandonmentDays, now) {
		signals = append(signals, TrustSignal{
			Category: CategoryAbandonment,
			Severity: severity.High,
			Message:  "package appears abandoned",
			Evidence: map[string]any{
				"latest_release":  meta.LatestRelease.Format(time.RFC3339),
				"days_since":      meta.DaysSinceLatest(now),
			},
		})
	}

	switch meta.ChurnBandFor(e.thresholds.ChurnHigh, e.thresholds.ChurnMedium) {
	case depmodel.ChurnHigh:
		signals = append(signals, TrustSignal{
			Category: CategoryChurn,
			Severity: severity.High,
			Message:  "unusually high release churn in the last 30 days",
			Evidence: map[string]any{"releases_last_30d": meta.ReleasesLast30d},
		})
	case depmodel.ChurnMedium:
		signals = append(signals, TrustSignal{
			Category: CategoryChurn,
			Severity: severity.Medium,
			Message:  "elevated release churn in the last 30 days",
			Evidence: map[string]any{"releases_last_30d": meta.ReleasesLast30d},
		})
	}

	switch count := meta.MaintainerCount(); {
	case count == e.thresholds.BusFactorZero:
		signals = append(signals, TrustSignal{
			Category: CategoryMaintainer,
			Severity: severity.Medium,
			Message:  "no known maintainers",
			Evidence: map[string]any{"maintainer_count": count},
		})
	case count == e.thresholds.BusFactorOne:
		signals = append(signals, TrustSignal{
			Category: CategoryMaintainer,
			Severity: severity.Low,
			Message:  "single maintainer (bus factor of one)",
			Evidence: map[string]any{"maintainer_count": count},
		})
	}

	if meta.IsLowMaturity(e.thresholds.LowMaturityMinimum) {
		signals = append(signals, TrustSignal{
			Category: CategoryMaturity,
			Severity: severity.Low,
			Message:  "package has few total releases",
			Evidence: map[string]any{"total_releases": meta.TotalReleases},
		})
	}

	if entry, ok := e.compromised[compromiseKey(dep.NormalizedEcosystem(), dep.NormalizedName())]; ok {
		signals = append(signals, TrustSignal{
			Category: CategoryCompromisedMaintainer,
			Severity: severity.Critical,
			Message:  "package maintainer account has a known compromise record",
			Evidence: map[string]any{"reference": entry.Reference},
		})
	}

	if sig, ok := e.typosquatSignal(dep); ok {
		signals = append(signals, sig)
	}

	return signals
}

// typosquatSignal walks the ecosystem's top-package list in order and
// stops at the first edit-distance match.
func (e *Engine) typosquatSignal(dep depmodel.Dependency) (TrustSignal, bool) {
	top := e.topPackages[dep.NormalizedEcosystem()]
	candidate := dep.NormalizedName()
	cutoff := e.thresholds.TyposquatMaxDistance
	if cutoff <= 0 {
		return TrustSignal{}, false
	}

	for _, target := range top {
		normalizedTarget := strings.ToLower(target)
		if candidate == normalizedTarget {
			continue
		}
		dist := levenshtein(candidate, normalizedTarget, cutoff)
		switch {
		case dist == 1:
			return TrustSignal{
				Category: CategoryTyposquat,
				Severity: severity.High,
				Message:  fmt.Sprintf("name closely resembles popular package %q", target),
				Evidence: map[string]any{"target": target},
			}, true
		case dist == 2 && cutoff >= 2:
			return TrustSignal{
				Category: CategoryTyposquat,
				Severity: severity.Medium,
				Message:  fmt.Sprintf("name resembles popular package %q", target),
				Evidence: map[string]any{"target": target},
			}, true
		}
	}
	return TrustSignal{}, false
}
