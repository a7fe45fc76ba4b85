package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type pypiAdapter struct {
	client *retryablehttp.Client
}

type pypiResponse struct {
	Info     pypiInfo `json:"info"`
	Releases map[string][]struct {
		UploadTimeISO8601 string `json:"upload_time_iso_8601"`
		Yanked            bool   `json:"yanked"`
	} `json:"releases"`
}

type pypiInfo struct {
	Author      string           `json:"author"`
	Maintainer  string           `json:"maintainer"`
	Maintainers []pypiMaintainer `json:"maintainers"`
}

type pypiMaintainer struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (a *pypiAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	url := fmt.Sprintf("https://pypi.org/pypi/%s/json", name)
	var resp pypiResponse
	ok, err := getJSON(ctx, a.client, url, &resp)
	if err != nil {
		return depmodel.ReleaseMetadata{}, err
	}
	if !ok {
		return depmodel.ReleaseMetadata{}, nil
	}

	now := time.Now()
	var latest *time.Time
	releasesLast30d := 0
	total := 0
	for _, files := range resp.Releases {
		var versionMax time.Time
		counted := false
		for _, f := range files {
			if f.Yanked {
				continue
			}
			t, ok := parseTime(f.UploadTimeISO8601)
			if !ok {
				continue
			}
			counted = true
			if t.After(versionMax) {
				versionMax = t
			}
		}
		if !counted {
			continue
		}
		total++
		if latest == nil || versionMax.After(*latest) {
			v := versionMax
			latest = &v
		}
		if now.Sub(versionMax) <= 30*24*time.Hour {
			releasesLast30d++
		}
	}

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
		Maintainers:     dedupMaintainers(pypiMaintainerList(resp.Info)),
	}, nil
}

// pypiMaintainerList picks the maintainer list from a PyPI info payload:
// the explicit maintainers[] array when present, otherwise author and
// maintainer together (author first), since either or both may be set
// independently on PyPI.
func pypiMaintainerList(info pypiInfo) []string {
	if len(info.Maintainers) > 0 {
		var out []string
		for _, m := range info.Maintainers {
			if m.Username != "" {
				out = append(out, m.Username)
			} else if m.Name != "" {
				out = append(out, m.Name)
			}
		}
		return out
	}
	var out []string
	if info.Author != "" {
		out = append(out, info.Author)
	}
	if info.Maintainer != "" {
		out = append(out, info.Maintainer)
	}
	return out
}
