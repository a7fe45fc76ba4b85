package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type rubygemsAdapter struct {
	client *retryablehttp.Client
}

func (a *rubygemsAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	var versions []struct {
		CreatedAt string `json:"created_at"`
	}
	ok, err := getJSON(ctx, a.client, fmt.Sprintf("https://rubygems.org/api/v1/versions/%s.json", name), &versions)
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
	for _, v := range versions {
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

	var gem struct {
		Authors string `json:"authors"`
	}
	_, _ = getJSON(ctx, a.client, fmt.Sprintf("https://rubygems.org/api/v1/gems/%s.json", name), &gem)

	var maintainers []string
	for _, author := range strings.Split(gem.Authors, ",") {
		author = strings.TrimSpace(author)
		if author != "" {
			maintainers = append(maintainers, author)
		}
	}

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
		Maintainers:     dedupMaintainers(maintainers),
	}, nil
}
