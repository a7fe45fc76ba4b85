package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type cratesAdapter struct {
	client *retryablehttp.Client
}

type cratesResponse struct {
	Versions []struct {
		CreatedAt string `json:"created_at"`
	} `json:"versions"`
	Teams []struct {
		Login string `json:"login"`
	} `json:"teams"`
}

func (a *cratesAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	url := fmt.Sprintf("https://crates.io/api/v1/crates/%s", name)
	var resp cratesResponse
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
	for _, v := range resp.Versions {
		t, ok := parseTime(v.CreatedAt)
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
	}

	var maintainers []string
	for _, t := range resp.Teams {
		if t.Login != "" {
			maintainers = append(maintainers, t.Login)
		}
	}

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
		Maintainers:     dedupMaintainers(maintainers),
	}, nil
}
