package registry

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/sync/semaphore"

	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/httputil"
)

type gomodAdapter struct {
	client      *retryablehttp.Client
	concurrency int64
}

func (a *gomodAdapter) fetch(ctx context.Context, module string) (depmodel.ReleaseMetadata, error) {
	versions, err := a.listVersions(ctx, module)
	if err != nil {
		return depmodel.ReleaseMetadata{}, err
	}
	if len(versions) == 0 {
		return depmodel.ReleaseMetadata{}, nil
	}

	toCheck := versions
	if len(toCheck) > 10 {
		toCheck = toCheck[len(toCheck)-10:]
	}

	n := a.concurrency
	if n <= 0 {
		n = 5
	}
	if int64(len(toCheck)) < n {
		n = int64(len(toCheck))
	}
	if n < 1 {
		n = 1
	}
	sem := semaphore.NewWeighted(n)

	var mu sync.Mutex
	var times []time.Time
	var wg sync.WaitGroup
	for _, v := range toCheck {
		v := v
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			t, ok := a.versionInfo(ctx, module, v)
			if !ok {
				return
			}
			mu.Lock()
			times = append(times, t)
			mu.Unlock()
		}()
	}
	wg.Wait()

	now := time.Now()
	var latest *time.Time
	releasesLast30d := 0
	for _, t := range times {
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
		TotalReleases:   len(versions),
	}, nil
}

func (a *gomodAdapter) listVersions(ctx context.Context, module string) ([]string, error) {
	url := fmt.Sprintf("https://proxy.golang.org/%s/@v/list", escapeModule(module))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := httputil.CheckResponse(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}

	var out []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func (a *gomodAdapter) versionInfo(ctx context.Context, module, version string) (time.Time, bool) {
	url := fmt.Sprintf("https://proxy.golang.org/%s/@v/%s.info", escapeModule(module), version)
	var info struct {
		Time string `json:"Time"`
	}
	ok, err := getJSON(ctx, a.client, url, &info)
	if err != nil || !ok {
		return time.Time{}, false
	}
	return parseTime(info.Time)
}

// escapeModule applies Go's module proxy case-encoding (an upper-case
// letter becomes "!" + lower-case letter) so mixed-case module paths
// resolve correctly.
func escapeModule(module string) string {
	var b strings.Builder
	for _, r := range module {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('!')
			b.WriteRune(r + ('a' - 'A'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
