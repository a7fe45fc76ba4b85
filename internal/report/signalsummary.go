package report

import (
	"sort"

	"github.com/rtxscan/rtx/internal/policy"
	"github.com/rtxscan/rtx/internal/severity"
)

// CategoryCount is one category's total and per-severity histogram.
type CategoryCount struct {
	Category   string         `json:"category"`
	Total      int            `json:"total"`
	BySeverity []SeverityCount `json:"by_severity"`
}

// SeverityCount is one severity band's count, keyed for stable, rank-
// ascending iteration.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// SignalSummary is the derived per-category and global severity
// histogram, sorted by severity rank lowest to highest.
type SignalSummary struct {
	ByCategory []CategoryCount `json:"by_category"`
	Global     []SeverityCount `json:"global"`
}

// NewSignalSummary computes the summary once over a finding set.
// Severity histograms iterate from lowest to highest rank.
func NewSignalSummary(findings []policy.Finding) SignalSummary {
	perCategory := make(map[string]map[severity.Severity]int)
	global := make(map[severity.Severity]int)

	var categoryOrder []string
	for _, f := range findings {
		for _, s := range f.Signals {
			if _, ok := perCategory[s.Category]; !ok {
				perCategory[s.Category] = make(map[severity.Severity]int)
				categoryOrder = append(categoryOrder, s.Category)
			}
			perCategory[s.Category][s.Severity]++
			global[s.Severity]++
		}
	}
	sort.Strings(categoryOrder)

	out := SignalSummary{Global: histogram(global)}
	for _, cat := range categoryOrder {
		hist := perCategory[cat]
		total := 0
		for _, n := range hist {
			total += n
		}
		out.ByCategory = append(out.ByCategory, CategoryCount{
			Category:   cat,
			Total:      total,
			BySeverity: histogram(hist),
		})
	}
	return out
}

func histogram(counts map[severity.Severity]int) []SeverityCount {
	out := make([]SeverityCount, 0, 5)
	for rank := severity.None; rank <= severity.Critical; rank++ {
		if n, ok := counts[rank]; ok && n > 0 {
			out = append(out, SeverityCount{Severity: rank.String(), Count: n})
		}
	}
	return out
}
