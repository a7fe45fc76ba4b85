// Package policy implements the Trust Policy Engine: signal derivation
// from release metadata and advisories, scalar risk scoring, and verdict
// assignment.
package policy

import (
	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/severity"
)

// Signal categories, fixed.
const (
	CategoryReleaseMetadata       = "release-metadata"
	CategoryAbandonment           = "abandonment"
	CategoryChurn                 = "churn"
	CategoryMaintainer            = "maintainer"
	CategoryMaturity              = "maturity"
	CategoryCompromisedMaintainer = "compromised-maintainer"
	CategoryTyposquat             = "typosquat"
)

// TrustSignal is one derived trust signal attached to a finding.
type TrustSignal struct {
	Category string            `json:"category"`
	Severity severity.Severity `json:"severity"`
	Message  string            `json:"message"`
	Evidence map[string]any    `json:"evidence,omitempty"`
}

// Finding is the Trust Policy Engine's output for one dependency.
type Finding struct {
	Dependency depmodel.Dependency  `json:"dependency"`
	Advisories []advisory.Advisory  `json:"advisories"`
	Signals    []TrustSignal        `json:"signals"`
	Score      float64              `json:"score"`
}

// Verdict computes max(Severity.FromScore(score), max advisory severity,
// max signal severity).
func (f Finding) Verdict() severity.Severity {
	v := severity.FromScore(f.Score)
	for _, a := range f.Advisories {
		v = severity.Max(v, a.Severity)
	}
	for _, s := range f.Signals {
		v = severity.Max(v, s.Severity)
	}
	return v
}
