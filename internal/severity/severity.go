// Package severity implements the totally ordered Severity enum shared by
// advisories, trust signals, and findings.
package severity

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity is a totally ordered trust/vulnerability severity.
type Severity int

// Defined severities, lowest to highest.
const (
	None Severity = iota
	Low
	Medium
	High
	Critical
)

var names = [...]string{"NONE", "LOW", "MEDIUM", "HIGH", "CRITICAL"}

var scores = [...]float64{0.0, 0.3, 0.6, 0.85, 1.0}

// String implements fmt.Stringer.
func (s Severity) String() string {
	if s < None || s > Critical {
		return "NONE"
	}
	return names[s]
}

// Rank returns the severity's numeric rank, 0 (None) through 4 (Critical).
func (s Severity) Rank() int {
	return int(s)
}

// Score returns the severity's fixed numeric score in [0,1].
func (s Severity) Score() float64 {
	if s < None || s > Critical {
		return 0
	}
	return scores[s]
}

// Parse maps a case-insensitive severity label to a Severity. Unknown
// labels map to None.
func Parse(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return Critical
	case "HIGH":
		return High
	case "MEDIUM", "MODERATE":
		return Medium
	case "LOW":
		return Low
	default:
		return None
	}
}

// FromScore maps a scalar score in [0,1] back to the Severity band whose
// threshold it meets, taking the highest qualifying band.
func FromScore(score float64) Severity {
	switch {
	case score >= scores[Critical]:
		return Critical
	case score >= scores[High]:
		return High
	case score >= scores[Medium]:
		return Medium
	case score > scores[None]:
		return Low
	default:
		return None
	}
}

// Max returns the higher-ranked of a and b.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// MarshalJSON renders the severity as its label string ("NONE", "LOW",
// ...) rather than its underlying int, so every wire format that embeds
// a Severity (advisories, trust signals, findings, signal summaries)
// uses the same representation.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the label string produced by MarshalJSON.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return fmt.Errorf("severity: %w", err)
	}
	*s = Parse(label)
	return nil
}
