package advisory

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/quay/zlog"
	"github.com/rtxscan/rtx/internal/depmodel"
	"github.com/rtxscan/rtx/internal/errs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Config parameterizes the Aggregator: batch size, concurrency caps,
// cache size, and GitHub token/enablement.
type Config struct {
	BatchSize         int
	MaxConcurrency    int64
	CacheSize         int
	DisableOSV        bool
	GitHubToken       string
	GitHubConcurrency int64
	DisableGitHub     bool
	HTTPTimeout       time.Duration
	HTTPRetries       int
}

// DefaultConfig returns the shipped default configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:         18,
		MaxConcurrency:    4,
		CacheSize:         512,
		GitHubConcurrency: 6,
		HTTPTimeout:       5 * time.Second,
		HTTPRetries:       2,
	}
}

// Aggregator queries OSV and GitHub advisory sources, deduplicates and
// merges results per coordinate, and caches them in an LRU.
type Aggregator struct {
	cfg         Config
	client      *retryablehttp.Client
	cache       *lru.Cache[string, []Advisory]
	githubToken string
}

// New builds an Aggregator. A zero CacheSize disables caching entirely.
func New(cfg Config) (*Aggregator, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.HTTPRetries
	client.Logger = nil
	client.Backoff = linearBackoff
	client.CheckRetry = checkRetry
	client.HTTPClient.Timeout = cfg.HTTPTimeout

	a := &Aggregator{cfg: cfg, client: client, githubToken: cfg.GitHubToken}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []Advisory](cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		a.cache = cache
	}
	return a, nil
}

// linearBackoff implements a delay×attempt linear policy in place of
// retryablehttp's default exponential backoff.
func linearBackoff(minDelay, maxDelay time.Duration, attemptNum int, resp *http.Response) time.Duration {
	d := minDelay * time.Duration(attemptNum+1)
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// checkRetry never retries a cancelled/deadline-exceeded context, so
// cancellation always propagates immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func (a *Aggregator) httpDo(req *http.Request) (*http.Response, error) {
	rreq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, err
	}
	return a.client.Do(rreq)
}

// ClearCache empties the LRU cache entirely, satisfying invariant I4
// (caches never return stale entries for cleared keys).
func (a *Aggregator) ClearCache() {
	if a.cache != nil {
		a.cache.Purge()
	}
}

// FetchAdvisories returns every known advisory for each dependency,
// keyed by coordinate. Every input coordinate is present in the result,
// even ones with no advisories or an unsupported ecosystem.
func (a *Aggregator) FetchAdvisories(ctx context.Context, deps []depmodel.Dependency) (map[string][]Advisory, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "advisory/Aggregator")
	out := make(map[string][]Advisory, len(deps))
	perCoord := make(map[string][]Advisory, len(deps))

	// Satisfy keys(out) = {d.coordinate} for every input regardless of
	// what follows, including duplicates.
	for _, d := range deps {
		out[d.Coordinate()] = nil
	}

	uncached := a.partitionCached(deps, perCoord)

	if osvResults, err := a.runOSV(ctx, uncached); err != nil {
		return nil, err
	} else {
		for coord, advs := range osvResults {
			perCoord[coord] = append(perCoord[coord], advs...)
		}
	}

	if ghResults, err := a.runGitHub(ctx, uncached); err != nil {
		var ghErr *tokenError
		if !errors.As(err, &ghErr) {
			return nil, err
		}
		// 401 raises once; caller substitutes empty GitHub results and
		// proceeds with OSV-only advisories.
		zlog.Warn(ctx).Msg("advisory: github token invalid, proceeding with osv-only results")
	} else {
		for coord, advs := range ghResults {
			perCoord[coord] = append(perCoord[coord], advs...)
		}
	}

	for coord, advs := range perCoord {
		merged := Merge(advs)
		perCoord[coord] = merged
		if a.cache != nil {
			a.cache.Add(coord, merged)
		}
	}
	for _, d := range deps {
		out[d.Coordinate()] = perCoord[d.Coordinate()]
	}
	return out, nil
}

// partitionCached fills result with cache hits and returns the dependency
// list still needing an upstream lookup, deduplicated by coordinate.
func (a *Aggregator) partitionCached(deps []depmodel.Dependency, result map[string][]Advisory) []depmodel.Dependency {
	seen := make(map[string]struct{})
	var uncached []depmodel.Dependency
	for _, d := range deps {
		coord := d.Coordinate()
		if _, dup := seen[coord]; dup {
			continue
		}
		seen[coord] = struct{}{}
		if a.cache != nil {
			if cached, ok := a.cache.Get(coord); ok {
				result[coord] = cached
				continue
			}
		}
		uncached = append(uncached, d)
	}
	return uncached
}

// runOSV dispatches uncached, OSV-supported dependencies in chunks of
// BatchSize under a concurrency semaphore.
func (a *Aggregator) runOSV(ctx context.Context, deps []depmodel.Dependency) (map[string][]Advisory, error) {
	out := make(map[string][]Advisory)
	if a.cfg.DisableOSV {
		return out, nil
	}

	var supported []depmodel.Dependency
	for _, d := range deps {
		if _, ok := supportsOSV(d); ok {
			supported = append(supported, d)
		} else {
			out[d.Coordinate()] = nil
		}
	}
	if len(supported) == 0 {
		return out, nil
	}

	batchSize := a.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 18
	}
	var chunks [][]depmodel.Dependency
	for i := 0; i < len(supported); i += batchSize {
		end := i + batchSize
		if end > len(supported) {
			end = len(supported)
		}
		chunks = append(chunks, supported[i:end])
	}

	maxConcurrency := a.cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	for _, chunk := range chunks {
		chunk := chunk
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			advs, err := a.fetchOSVChunk(gctx, chunk)
			if err != nil {
				return &errs.Error{Op: "advisory.runOSV", Kind: errs.ErrAdvisoryService, Inner: err}
			}
			mu.Lock()
			for i, d := range chunk {
				out[d.Coordinate()] = advs[i]
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// runGitHub dispatches one GraphQL lookup per unique (ecosystem,
// upper(name)) pair under a concurrency semaphore, then fans results back
// out to every coordinate that shares the target.
func (a *Aggregator) runGitHub(ctx context.Context, deps []depmodel.Dependency) (map[string][]Advisory, error) {
	out := make(map[string][]Advisory)
	if a.cfg.DisableGitHub || a.githubToken == "" || len(deps) == 0 {
		return out, nil
	}

	targets := dedupGitHubTargets(deps)
	byTarget := make(map[string][]Advisory, len(targets))

	maxConcurrency := a.cfg.GitHubConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 6
	}
	sem := semaphore.NewWeighted(maxConcurrency)
	g, gctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	var tokenErr error
	for _, t := range targets {
		t := t
		if err := sem.Acquire(gctx, 1); err != nil {
			return nil, err
		}
		g.Go(func() error {
			defer sem.Release(1)
			advs, err := a.fetchGitHubPackage(gctx, t.Ecosystem, t.Name)
			if err != nil {
				var te *tokenError
				if errors.As(err, &te) {
					mu.Lock()
					tokenErr = err
					mu.Unlock()
					return nil
				}
				return nil
			}
			mu.Lock()
			byTarget[t.Ecosystem+"\x00"+strings.ToUpper(t.Name)] = advs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if tokenErr != nil {
		return out, &errs.Error{Op: "advisory.runGitHub", Kind: errs.ErrAdvisoryService, Inner: tokenErr}
	}

	for _, d := range deps {
		key := d.NormalizedEcosystem() + "\x00" + strings.ToUpper(d.Name)
		out[d.Coordinate()] = byTarget[key]
	}
	return out, nil
}
