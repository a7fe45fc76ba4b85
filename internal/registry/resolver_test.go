package registry

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rtxscan/rtx/internal/depmodel"
)

type fakeAdapter struct {
	calls int32
	delay time.Duration
	meta  depmodel.ReleaseMetadata
	err   error
}

func (f *fakeAdapter) fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return depmodel.ReleaseMetadata{}, ctx.Err()
		}
	}
	return f.meta, f.err
}

func newTestResolver(a adapter) *Resolver {
	return &Resolver{
		memory:   make(map[string]depmodel.ReleaseMetadata),
		inflight: make(map[string]*inflight),
		adapters: map[string]adapter{"pypi": a},
	}
}

func TestFetchSingleFlightsConcurrentCallersForSameKey(t *testing.T) {
	fake := &fakeAdapter{delay: 20 * time.Millisecond, meta: depmodel.ReleaseMetadata{TotalReleases: 3}}
	r := newTestResolver(fake)
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.Fetch(context.Background(), dep); err != nil {
				t.Errorf("Fetch: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&fake.calls); got != 1 {
		t.Fatalf("expected exactly one upstream fetch for %d concurrent callers sharing a key, got %d", n, got)
	}
}

func TestFetchCachesAfterFirstSuccess(t *testing.T) {
	fake := &fakeAdapter{meta: depmodel.ReleaseMetadata{TotalReleases: 7}}
	r := newTestResolver(fake)
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}

	if _, err := r.Fetch(context.Background(), dep); err != nil {
		t.Fatalf("Fetch 1: %v", err)
	}
	if _, err := r.Fetch(context.Background(), dep); err != nil {
		t.Fatalf("Fetch 2: %v", err)
	}
	if got := atomic.LoadInt32(&fake.calls); got != 1 {
		t.Fatalf("expected the second Fetch to be served from the memory cache, got %d upstream calls", got)
	}
}

func TestFetchUnknownEcosystemSkipsAdapter(t *testing.T) {
	fake := &fakeAdapter{meta: depmodel.ReleaseMetadata{TotalReleases: 1}}
	r := newTestResolver(fake)
	dep := depmodel.Dependency{Ecosystem: "homebrew", Name: "whatever", Version: "1.0.0"}

	meta, err := r.Fetch(context.Background(), dep)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if meta.TotalReleases != 0 {
		t.Fatalf("expected zero-value metadata for an unregistered ecosystem, got %+v", meta)
	}
	if atomic.LoadInt32(&fake.calls) != 0 {
		t.Fatal("expected no adapter call for an unregistered ecosystem")
	}
}

func newTestResolverWithDisk(t *testing.T, a adapter) *Resolver {
	t.Helper()
	db, err := bolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0o600, nil)
	if err != nil {
		t.Fatalf("bolt.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(metadataBucket)
		return err
	}); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	return &Resolver{
		memory:   make(map[string]depmodel.ReleaseMetadata),
		inflight: make(map[string]*inflight),
		adapters: map[string]adapter{"pypi": a},
		disk:     db,
	}
}

func TestFetchPersistsToDiskAndSurvivesMemoryClear(t *testing.T) {
	fake := &fakeAdapter{meta: depmodel.ReleaseMetadata{TotalReleases: 5}}
	r := newTestResolverWithDisk(t, fake)
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}

	if _, err := r.Fetch(context.Background(), dep); err != nil {
		t.Fatalf("Fetch 1: %v", err)
	}

	// Drop only the memory tier directly, leaving the disk tier intact,
	// to confirm Fetch serves the second call from disk without a
	// second upstream call.
	r.mu.Lock()
	r.memory = make(map[string]depmodel.ReleaseMetadata)
	r.mu.Unlock()

	meta, err := r.Fetch(context.Background(), dep)
	if err != nil {
		t.Fatalf("Fetch 2: %v", err)
	}
	if meta.TotalReleases != 5 {
		t.Fatalf("expected metadata served from disk, got %+v", meta)
	}
	if got := atomic.LoadInt32(&fake.calls); got != 1 {
		t.Fatalf("expected exactly one upstream fetch with disk cache populated, got %d", got)
	}
}

func TestClearCacheForcesRefetch(t *testing.T) {
	fake := &fakeAdapter{meta: depmodel.ReleaseMetadata{TotalReleases: 2}}
	r := newTestResolver(fake)
	dep := depmodel.Dependency{Ecosystem: "pypi", Name: "requests", Version: "2.31.0"}

	if _, err := r.Fetch(context.Background(), dep); err != nil {
		t.Fatalf("Fetch 1: %v", err)
	}
	r.ClearCache(true)
	if _, err := r.Fetch(context.Background(), dep); err != nil {
		t.Fatalf("Fetch 2: %v", err)
	}
	if got := atomic.LoadInt32(&fake.calls); got != 2 {
		t.Fatalf("expected ClearCache to force a second upstream fetch, got %d calls", got)
	}
}
