package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/quay/zlog"
	"github.com/rtxscan/rtx/internal/depmodel"
)

const githubGraphQLEndpoint = "https://api.github.com/graphql"

const githubAdvisoryQuery = `query($ecosystem: SecurityAdvisoryEcosystem!, $package: String!) {
  securityVulnerabilities(ecosystem: $ecosystem, package: $package, first: 100) {
    nodes {
      advisory {
        ghsaId
        summary
        severity
        references { url }
      }
    }
  }
}`

var githubEcosystem = map[string]string{
	"npm":       "NPM",
	"pypi":      "PIP",
	"maven":     "MAVEN",
	"crates":    "RUST",
	"go":        "GO",
	"packagist": "COMPOSER",
	"nuget":     "NUGET",
	"rubygems":  "RUBYGEMS",
}

type githubGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type githubGraphQLResponse struct {
	Data struct {
		SecurityVulnerabilities struct {
			Nodes []struct {
				Advisory struct {
					GHSAID     string `json:"ghsaId"`
					Summary    string `json:"summary"`
					Severity   string `json:"severity"`
					References []struct {
						URL string `json:"url"`
					} `json:"references"`
				} `json:"advisory"`
			} `json:"nodes"`
		} `json:"securityVulnerabilities"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// fetchGitHubPackage queries the GitHub Security Advisory GraphQL API for
// one (ecosystem, name) pair. ecosystem is the normalized tag; name is sent
// as given.
func (a *Aggregator) fetchGitHubPackage(ctx context.Context, ecosystem, name string) ([]Advisory, error) {
	wire, ok := githubEcosystem[ecosystem]
	if !ok {
		return nil, nil
	}
	reqBody := githubGraphQLRequest{
		Query: githubAdvisoryQuery,
		Variables: map[string]any{
			"ecosystem": wire,
			"package":   name,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("advisory: marshal github query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, githubGraphQLEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("advisory: build github request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "bearer "+a.githubToken)

	resp, err := a.httpDo(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &tokenError{}
	}
	if resp.StatusCode >= 400 {
		zlog.Warn(ctx).Int("status", resp.StatusCode).Str("package", name).Msg("advisory: github query failed, falling back to empty")
		return nil, nil
	}

	var parsed githubGraphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		zlog.Warn(ctx).Err(err).Msg("advisory: decode github response failed, falling back to empty")
		return nil, nil
	}
	if len(parsed.Errors) > 0 {
		zlog.Warn(ctx).Str("package", name).Msg("advisory: github graphql reported errors, falling back to empty")
		return nil, nil
	}

	out := make([]Advisory, 0, len(parsed.Data.SecurityVulnerabilities.Nodes))
	for _, n := range parsed.Data.SecurityVulnerabilities.Nodes {
		refs := make([]string, 0, len(n.Advisory.References))
		for _, r := range n.Advisory.References {
			if r.URL != "" {
				refs = append(refs, r.URL)
			}
		}
		out = append(out, Advisory{
			Identifier: n.Advisory.GHSAID,
			Source:     "github",
			Severity:   githubSeverityFromLabel(n.Advisory.Severity),
			Summary:    n.Advisory.Summary,
			References: refs,
		})
	}
	return out, nil
}

type tokenError struct{}

func (*tokenError) Error() string { return "Invalid token" }

// dedupGitHubTargets reduces deps to the unique (ecosystem, upper(name))
// pairs the GraphQL source should be queried for.
func dedupGitHubTargets(deps []depmodel.Dependency) []struct{ Ecosystem, Name string } {
	seen := make(map[string]struct{})
	var out []struct{ Ecosystem, Name string }
	for _, d := range deps {
		eco := d.NormalizedEcosystem()
		key := eco + "\x00" + strings.ToUpper(d.Name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, struct{ Ecosystem, Name string }{Ecosystem: eco, Name: d.Name})
	}
	return out
}
