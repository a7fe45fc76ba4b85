// Package depmodel holds the Dependency value type that flows through the
// entire rtx pipeline: scanner output, advisory lookup key, policy input,
// and report/SBOM component.
package depmodel

import (
	"fmt"
	"sort"
	"strings"
)

// Dependency is an immutable-by-convention record describing one
// third-party package declared by a scanned project.
type Dependency struct {
	Ecosystem string         `json:"ecosystem"`
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	Direct    bool           `json:"direct"`
	Manifest  string         `json:"manifest"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Coordinate returns the "{ecosystem}:{name}@{version}" primary key.
func (d Dependency) Coordinate() string {
	return fmt.Sprintf("%s:%s@%s", d.Ecosystem, d.Name, d.Version)
}

// NormalizedEcosystem returns the case-folded ecosystem tag.
func (d Dependency) NormalizedEcosystem() string {
	return strings.ToLower(strings.TrimSpace(d.Ecosystem))
}

// NormalizedName returns the case-folded package name.
func (d Dependency) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(d.Name))
}

// MetadataKey returns the resolver cache key for this dependency's
// package identity: "{normalized_ecosystem}:{normalized_name}". It is
// version-independent because release metadata describes the package,
// not one release.
func (d Dependency) MetadataKey() string {
	return d.NormalizedEcosystem() + ":" + d.NormalizedName()
}

// Relationship is a directed edge between two dependency coordinates,
// produced by a scanner alongside its dependency list.
type Relationship struct {
	Src string
	Dst string
}

// Merge folds incoming into existing and satisfies
// the idempotence property Merge(x, Merge(x, y)) == Merge(x, y).
func Merge(existing, incoming Dependency) Dependency {
	out := existing
	out.Direct = existing.Direct || incoming.Direct

	merged := make(map[string]any, len(existing.Metadata)+len(incoming.Metadata))
	for k, v := range existing.Metadata {
		merged[k] = v
	}
	for k, v := range incoming.Metadata {
		merged[k] = v
	}

	var manifests []string
	manifests = append(manifests, priorManifests(existing)...)
	manifests = append(manifests, priorManifests(incoming)...)
	merged["manifests"] = uniqueInOrder(manifests)
	out.Metadata = merged
	return out
}

// priorManifests returns d's known manifest origins: its own prior
// "manifests" list if one was recorded, else just its own Manifest field.
func priorManifests(d Dependency) []string {
	if prior, ok := d.Metadata["manifests"]; ok {
		switch v := prior.(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	if d.Manifest != "" {
		return []string{d.Manifest}
	}
	return nil
}

func uniqueInOrder(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
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

// SortByCoordinate sorts dependencies in place by coordinate.
func SortByCoordinate(deps []Dependency) {
	sort.Slice(deps, func(i, j int) bool { return deps[i].Coordinate() < deps[j].Coordinate() })
}
