package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/quay/zlog"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/severity"
)

const osvBatchEndpoint = "https://api.osv.dev/v1/querybatch"

// osvEcosystem is the fixed set of ecosystems the OSV batch source
// supports, mapped to the exact wire name the endpoint expects.
var osvEcosystem = map[string]string{
	"npm":       "npm",
	"pypi":      "PyPI",
	"maven":     "Maven",
	"crates":    "crates.io",
	"go":        "Go",
	"packagist": "Packagist",
	"nuget":     "NuGet",
	"rubygems":  "RubyGems",
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvBatchRequest struct {
	Queries []osvQuery `json:"queries"`
}

type osvBatchResponse struct {
	Results []struct {
		Vulns []osvVuln `json:"vulns"`
	} `json:"results"`
}

type osvVuln struct {
	ID               string `json:"id"`
	Summary          string `json:"summary"`
	Severity         []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
	DatabaseSpecific struct {
		Severity string `json:"severity"`
	} `json:"database_specific"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

func (v osvVuln) toAdvisory() Advisory {
	sev := severity.None
	found := false
	for _, s := range v.Severity {
		if parsed, ok := osvSeverityFromScore(s.Score); ok {
			sev = parsed
			found = true
			break
		}
	}
	if !found && v.DatabaseSpecific.Severity != "" {
		sev = osvSeverityFromLabel(v.DatabaseSpecific.Severity)
	}
	refs := make([]string, 0, len(v.References))
	for _, r := range v.References {
		if r.URL != "" {
			refs = append(refs, r.URL)
		}
	}
	return Advisory{
		Identifier: v.ID,
		Source:     "osv",
		Severity:   sev,
		Summary:    v.Summary,
		References: refs,
	}
}

// supportsOSV reports whether the dependency's ecosystem is one of the
// ones the batch endpoint accepts queries for.
func supportsOSV(dep depmodel.Dependency) (string, bool) {
	name, ok := osvEcosystem[dep.NormalizedEcosystem()]
	return name, ok
}

// fetchOSVChunk posts one batch of queries and returns one advisory list
// per query, positionally aligned with deps. The batch endpoint's result
// ordering on partial failure is undocumented, so a missing result entry
// is treated as empty rather than an error.
func (a *Aggregator) fetchOSVChunk(ctx context.Context, deps []depmodel.Dependency) ([][]Advisory, error) {
	queries := make([]osvQuery, len(deps))
	for i, d := range deps {
		wire, _ := supportsOSV(d)
		queries[i] = osvQuery{Package: osvPackage{Name: d.Name, Ecosystem: wire}, Version: d.Version}
	}
	body, err := json.Marshal(osvBatchRequest{Queries: queries})
	if err != nil {
		return nil, fmt.Errorf("advisory: marshal osv batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, osvBatchEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("advisory: build osv request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpDo(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		zlog.Warn(ctx).Int("status", resp.StatusCode).Msg("advisory: osv batch returned client error, treating chunk as empty")
		return make([][]Advisory, len(deps)), nil
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("advisory: osv batch server error: %d", resp.StatusCode)
	}

	var parsed osvBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("advisory: decode osv batch response: %w", err)
	}

	out := make([][]Advisory, len(deps))
	for i := range deps {
		if i >= len(parsed.Results) {
			continue
		}
		for _, v := range parsed.Results[i].Vulns {
			out[i] = append(out[i], v.toAdvisory())
		}
	}
	return out, nil
}
