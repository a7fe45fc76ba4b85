package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rtxscan/rtx/internal/depmodel"
)

type mavenAdapter struct {
	client *retryablehttp.Client
}

type mavenSolrResponse struct {
	Response struct {
		Docs []mavenDoc `json:"docs"`
	} `json:"response"`
}

type mavenDoc struct {
	Timestamp rawNumberOrString `json:"timestamp"`
}

func (a *mavenAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	idx := strings.Index(name, ":")
	if idx < 0 {
		return depmodel.ReleaseMetadata{}, errors.New("registry: maven coordinate requires \"group:artifact\"")
	}
	group, artifact := name[:idx], name[idx+1:]

	q := url.Values{}
	q.Set("q", fmt.Sprintf("g:%q AND a:%q", group, artifact))
	q.Set("core", "gav")
	q.Set("rows", "200")
	q.Set("wt", "json")
	reqURL := "https://search.maven.org/solrsearch/select?" + q.Encode()

	var resp mavenSolrResponse
	ok, err := getJSON(ctx, a.client, reqURL, &resp)
	if err != nil {
		return depmodel.ReleaseMetadata{}, err
	}
	if !ok || len(resp.Response.Docs) == 0 {
		return depmodel.ReleaseMetadata{}, nil
	}

	now := time.Now()
	var latest *time.Time
	releasesLast30d := 0
	total := 0
	for _, doc := range resp.Response.Docs {
		t, ok := doc.Timestamp.asTime()
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

	return depmodel.ReleaseMetadata{
		LatestRelease:   latest,
		ReleasesLast30d: releasesLast30d,
		TotalReleases:   total,
	}, nil
}
