// Package report implements the Report model: findings, signal summary,
// and deterministic JSON serialization.
package report

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rtxscan/rtx/internal/advisory"
	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/severity"
)

// Stats summarizes one scan run.
type Stats struct {
	Total            int            `json:"total"`
	Direct           int            `json:"direct"`
	Indirect         int            `json:"indirect"`
	GraphNodes       int            `json:"graph_nodes"`
	GraphEdges       int            `json:"graph_edges"`
	PerEcosystem     map[string]int `json:"per_ecosystem"`
}

// Report is the top-level scan result.
type Report struct {
	ID          string           `json:"id"`
	Path        string           `json:"path"`
	Managers    []string         `json:"managers"`
	Findings    []policy.Finding `json:"findings"`
	GeneratedAt time.Time        `json:"generated_at"`
	Stats       Stats            `json:"stats"`
}

// New builds a Report, sorting findings by coordinate and managers by
// discovery order with case-folded deduplication.
func New(path string, managers []string, findings []policy.Finding, generatedAt time.Time) Report {
	sorted := append([]policy.Finding(nil), findings...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Dependency.Coordinate() < sorted[j].Dependency.Coordinate()
	})

	return Report{
		ID:          uuid.NewString(),
		Path:        path,
		Managers:    dedupeManagers(managers),
		Findings:    sorted,
		GeneratedAt: generatedAt,
		Stats:       computeStats(sorted),
	}
}

func dedupeManagers(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, m := range in {
		key := toLowerASCII(m)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, m)
	}
	return out
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func computeStats(findings []policy.Finding) Stats {
	st := Stats{PerEcosystem: make(map[string]int)}
	for _, f := range findings {
		st.Total++
		if f.Dependency.Direct {
			st.Direct++
		} else {
			st.Indirect++
		}
		st.PerEcosystem[f.Dependency.Ecosystem]++
	}
	return st
}

// ExitCode maps the report's highest verdict to a CLI exit code,
// monotone in severity.
func (r Report) ExitCode() int {
	highest := severity.None
	for _, f := range r.Findings {
		highest = severity.Max(highest, f.Verdict())
	}
	switch {
	case highest == severity.Critical || highest == severity.High:
		return 2
	case highest == severity.Medium:
		return 1
	default:
		return 0
	}
}

// jsonFinding mirrors the exact findings[] schema of the JSON report.
type jsonFinding struct {
	Dependency string               `json:"dependency"`
	Ecosystem  string               `json:"ecosystem"`
	Name       string               `json:"name"`
	Version    string               `json:"version"`
	Direct     bool                 `json:"direct"`
	Manifest   string               `json:"manifest"`
	Metadata   map[string]any       `json:"metadata,omitempty"`
	Score      float64              `json:"score"`
	Verdict    string               `json:"verdict"`
	Advisories []advisory.Advisory  `json:"advisories"`
	Signals    []policy.TrustSignal `json:"signals"`
}

type jsonReport struct {
	Summary       jsonSummary    `json:"summary"`
	Findings      []jsonFinding  `json:"findings"`
	Stats         Stats          `json:"stats"`
	SignalSummary SignalSummary  `json:"signal_summary"`
}

type jsonSummary struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Managers    []string  `json:"managers"`
	GeneratedAt time.Time `json:"generated_at"`
	ExitCode    int       `json:"exit_code"`
}

// ToJSON produces the exact top-level {summary, findings, stats,
// signal_summary} shape, suitable for json.Marshal.
func (r Report) ToJSON() ([]byte, error) {
	findings := make([]jsonFinding, 0, len(r.Findings))
	for _, f := range r.Findings {
		findings = append(findings, jsonFinding{
			Dependency: f.Dependency.Coordinate(),
			Ecosystem:  f.Dependency.Ecosystem,
			Name:       f.Dependency.Name,
			Version:    f.Dependency.Version,
			Direct:     f.Dependency.Direct,
			Manifest:   f.Dependency.Manifest,
			Metadata:   f.Dependency.Metadata,
			Score:      f.Score,
			Verdict:    f.Verdict().String(),
			Advisories: orEmpty(f.Advisories),
			Signals:    orEmptySignals(f.Signals),
		})
	}

	out := jsonReport{
		Summary: jsonSummary{
			ID:          r.ID,
			Path:        r.Path,
			Managers:    r.Managers,
			GeneratedAt: r.GeneratedAt,
			ExitCode:    r.ExitCode(),
		},
		Findings:      findings,
		Stats:         r.Stats,
		SignalSummary: NewSignalSummary(r.Findings),
	}
	return json.MarshalIndent(out, "", "  ")
}

func orEmpty(in []advisory.Advisory) []advisory.Advisory {
	if in == nil {
		return []advisory.Advisory{}
	}
	return in
}

func orEmptySignals(in []policy.TrustSignal) []policy.TrustSignal {
	if in == nil {
		return []policy.TrustSignal{}
	}
	return in
}
