// Package advisory implements the Advisory Aggregator: batched OSV-style
// vulnerability lookup, a per-package GitHub GraphQL source, cross-source
// merge, and an LRU cache.
package advisory

import (
	"sort"

	"github.com/rtxscan/rtx/internal/severity"
)

// Advisory is one vulnerability record attached to a dependency.
type Advisory struct {
	Identifier string            `json:"identifier"`
	Source     string            `json:"source"`
	Severity   severity.Severity `json:"severity"`
	Summary    string            `json:"summary"`
	References []string          `json:"references,omitempty"`
}

// key returns the (source, identifier) dedup key.
func (a Advisory) key() string {
	return a.Source + "\x00" + a.Identifier
}

// mergeGroup folds advisories sharing one (source,id) key into a single
// advisory: highest severity wins, summary prefers the higher-severity
// record's non-empty summary, references are unioned in insertion order.
func mergeGroup(group []Advisory) Advisory {
	out := group[0]
	for _, a := range group[1:] {
		if a.Severity > out.Severity {
			if a.Summary != "" {
				out.Summary = a.Summary
			}
			out.Severity = a.Severity
		} else if out.Summary == "" && a.Summary != "" {
			out.Summary = a.Summary
		}
		out.References = unionInOrder(out.References, a.References)
	}
	return out
}

func unionInOrder(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Merge groups advisories by (source,id), reduces each group, and returns
// the result sorted by (-severity rank, source, identifier). The reducer
// never lowers severity and unions references in insertion order.
func Merge(advisories []Advisory) []Advisory {
	groups := make(map[string][]Advisory)
	var order []string
	for _, a := range advisories {
		k := a.key()
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], a)
	}
	out := make([]Advisory, 0, len(order))
	for _, k := range order {
		out = append(out, mergeGroup(groups[k]))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity != out[j].Severity {
			return out[i].Severity > out[j].Severity
		}
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}
