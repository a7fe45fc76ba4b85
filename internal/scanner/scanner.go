// Package scanner defines the external Scanner interface the Scan
// Orchestrator drives, plus a name-based registry for the concrete
// scanners this repository ships.
package scanner

import (
	"context"

	"github.com/rtxscan/rtx/internal/depmodel"
)

// Result is one scanner's output.
type Result struct {
	Dependencies  []depmodel.Dependency
	Relationships []depmodel.Relationship
}

// Scanner is the external collaborator interface the Scan Orchestrator
// drives: a per-ecosystem manifest parser producing a dependency list.
type Scanner interface {
	Manager() string
	Manifests() []string
	Ecosystem() string
	Matches(root string) bool
	Scan(ctx context.Context, root string) (Result, error)
}

// Factory constructs a Scanner.
type Factory func() Scanner
