package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type nugetAdapter struct {
	client *retryablehttp.Client
}

type nugetIndex struct {
	Items []struct {
		Items []struct {
			CatalogEntry struct {
				Published string `json:"published"`
				Authors   string `json:"authors"`
			} `json:"catalogEntry"`
		} `json:"items"`
	} `json:"items"`
}

func (a *nugetAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	lower := strings.ToLower(name)
	url := fmt.Sprintf("https://api.nuget.org/v3/registration5-semver1/%s/index.json", lower)
	var resp nugetIndex
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
	var maintainers []string
	for _, page := range resp.Items {
		for _, leaf := range page.Items {
			entry := leaf.CatalogEntry
			t, ok := parseTime(entry.Published)
			if !ok {
				continue
			}
			total++
			if latest == nil || t.After(*latest) {
				lv := t
				latest = &lv
			}
			if now.Sub(t) <= 30*24*time.Hour {
				releasesLast30d++
			}
			for _, author := range strings.Split(entry.Authors, ",") {
				author = strings.TrimSpace(author)
				if author != "" {
					maintainers = append(maintainers, author)
				}
			}
		}
	}

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
		Maintainers:     dedupMaintainers(maintainers),
	}, nil
}
