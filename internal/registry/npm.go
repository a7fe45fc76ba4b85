package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type npmAdapter struct {
	client *retryablehttp.Client
}

type npmResponse struct {
	Time        map[string]string `json:"time"`
	Maintainers []npmMaintainer    `json:"maintainers"`
	Author      json.RawMessage    `json:"author"`
}

type npmMaintainer struct {
	Name string `json:"name"`
}

func (a *npmAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	url := fmt.Sprintf("https://registry.npmjs.org/%s", name)
	var resp npmResponse
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
	for version, raw := range resp.Time {
		if version == "created" || version == "modified" {
			continue
		}
		t, ok := parseTime(raw)
		if !ok {
			continue
		}
		total++
		if latest == nil || t.After(*latest) {
			v := t
			latest = &v
		}
		if now.Sub(t) <= 30*24*time.Hour {
			releasesLast30d++
		}
	}

	var maintainers []string
	if len(resp.Maintainers) > 0 {
		for _, m := range resp.Maintainers {
			if m.Name != "" {
				maintainers = append(maintainers, m.Name)
			}
		}
	} else if len(resp.Author) > 0 {
		if name := authorName(resp.Author); name != "" {
			maintainers = append(maintainers, name)
		}
	}

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
		Maintainers:     dedupMaintainers(maintainers),
	}, nil
}

// authorName extracts a name from npm's author field, which may be a
// bare string or an {name,...} object.
func authorName(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}
