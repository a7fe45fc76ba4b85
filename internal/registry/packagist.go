package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type packagistAdapter struct {
	client *retryablehttp.Client
}

type packagistResponse struct {
	Package struct {
		Versions map[string]struct {
			Time    string `json:"time"`
			Authors []struct {
				Name string `json:"name"`
			} `json:"authors"`
		} `json:"versions"`
	} `json:"package"`
}

func (a *packagistAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	idx := strings.Index(name, "/")
	if idx < 0 {
		return depmodel.ReleaseMetadata{}, errors.New("registry: packagist coordinate requires \"vendor/package\"")
	}
	url := fmt.Sprintf("https://packagist.org/packages/%s.json", name)
	var resp packagistResponse
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
	for _, v := range resp.Package.Versions {
		t, ok := parseTime(v.Time)
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
		for _, au := range v.Authors {
			if au.Name != "" {
				maintainers = append(maintainers, au.Name)
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
