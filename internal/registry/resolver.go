// Package registry implements the Metadata Resolver: eight per-ecosystem
// registry adapters behind a single-flight, two-tier (memory + disk)
// cache with bounded concurrency.
package registry

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/quay/zlog"
	bolt "go.etcd.io/bbolt"

	"github.com/rtxscan/rtx/internal/depmodel"
)

var metadataBucket = []byte("release-metadata")

// adapter is the common shape every per-ecosystem registry client
// implements, closed over the resolver's shared HTTP client.
type adapter interface {
	fetch(ctx context.Context, name string) (depmodel.ReleaseMetadata, error)
}

// inflight is a registered single-flight computation for one cache key.
type inflight struct {
	done   chan struct{}
	val    depmodel.ReleaseMetadata
	err    error
	cancel context.CancelFunc
}

// Config parameterizes the Resolver.
type Config struct {
	HTTPTimeout      time.Duration
	HTTPRetries      int
	GomodConcurrency int64
	DiskCachePath    string // empty disables the disk tier
}

// Resolver dispatches dependency lookups to the adapter registered for
// their ecosystem, deduplicating concurrent callers and caching results.
type Resolver struct {
	adapters map[string]adapter

	mu       sync.Mutex
	memory   map[string]depmodel.ReleaseMetadata
	inflight map[string]*inflight
	disk     *bolt.DB
}

// New builds a Resolver with the closed dispatch table of eight
// ecosystem adapters, all sharing one retryable HTTP client.
func New(cfg Config) (*Resolver, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.HTTPRetries
	client.Logger = nil
	client.Backoff = func(minDelay, maxDelay time.Duration, attemptNum int, resp *http.Response) time.Duration {
		d := minDelay * time.Duration(attemptNum+1)
		if d > maxDelay {
			return maxDelay
		}
		return d
	}
	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	client.HTTPClient.Timeout = cfg.HTTPTimeout

	gomodConcurrency := cfg.GomodConcurrency
	if gomodConcurrency <= 0 {
		gomodConcurrency = 5
	}

	r := &Resolver{
		memory:   make(map[string]depmodel.ReleaseMetadata),
		inflight: make(map[string]*inflight),
		adapters: map[string]adapter{
			"pypi":      &pypiAdapter{client: client},
			"npm":       &npmAdapter{client: client},
			"crates":    &cratesAdapter{client: client},
			"go":        &gomodAdapter{client: client, concurrency: gomodConcurrency},
			"rubygems":  &rubygemsAdapter{client: client},
			"maven":     &mavenAdapter{client: client},
			"nuget":     &nugetAdapter{client: client},
			"packagist": &packagistAdapter{client: client},
		},
	}

	if cfg.DiskCachePath != "" {
		db, err := bolt.Open(cfg.DiskCachePath, 0o600, &bolt.Options{Timeout: cfg.HTTPTimeout})
		if err != nil {
			return nil, fmt.Errorf("registry: open disk cache: %w", err)
		}
		if err := db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(metadataBucket)
			return err
		}); err != nil {
			db.Close()
			return nil, fmt.Errorf("registry: init disk cache bucket: %w", err)
		}
		r.disk = db
	}

	return r, nil
}

// Close releases the disk cache handle, if any.
func (r *Resolver) Close() error {
	if r.disk != nil {
		return r.disk.Close()
	}
	return nil
}

// Fetch resolves release metadata for dep. Unknown ecosystems return
// empty metadata immediately without consulting any cache tier.
func (r *Resolver) Fetch(ctx context.Context, dep depmodel.Dependency) (depmodel.ReleaseMetadata, error) {
	ctx = zlog.ContextWithValues(ctx, "component", "registry/Resolver")
	a, ok := r.adapters[dep.NormalizedEcosystem()]
	if !ok {
		return depmodel.ReleaseMetadata{Ecosystem: dep.Ecosystem}, nil
	}
	key := dep.MetadataKey()

	if m, ok := r.readDisk(key); ok {
		return m, nil
	}

	r.mu.Lock()
	if m, ok := r.memory[key]; ok {
		r.mu.Unlock()
		return m, nil
	}
	if inf, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		<-inf.done
		return inf.val, inf.err
	}

	infCtx, cancel := context.WithCancel(ctx)
	inf := &inflight{done: make(chan struct{}), cancel: cancel}
	r.inflight[key] = inf
	r.mu.Unlock()

	val, err := a.fetch(infCtx, dep.Name)

	if err == nil {
		val.Ecosystem = dep.Ecosystem
	}
	r.mu.Lock()
	delete(r.inflight, key)
	if err == nil {
		r.memory[key] = val
	}
	r.mu.Unlock()
	if err == nil {
		r.writeDisk(key, val)
	}

	inf.val, inf.err = val, err
	close(inf.done)
	return val, err
}

func (r *Resolver) readDisk(key string) (depmodel.ReleaseMetadata, bool) {
	if r.disk == nil {
		return depmodel.ReleaseMetadata{}, false
	}
	var out depmodel.ReleaseMetadata
	var found bool
	_ = r.disk.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(metadataBucket)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		dec := gob.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&out); err != nil {
			return nil
		}
		found = true
		return nil
	})
	return out, found
}

// writeDisk persists val under key. Called without r.mu held: bbolt does
// its own internal locking, and the memory tier's mutex must never be
// held across disk I/O.
func (r *Resolver) writeDisk(key string, val depmodel.ReleaseMetadata) {
	if r.disk == nil {
		return
	}
	buf := gobEncode(val)
	_ = r.disk.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(metadataBucket)
		if b == nil {
			return nil
		}
		return b.Put([]byte(key), buf)
	})
}

// ClearCache drops the memory map and the disk bucket, and optionally
// cancels any inflight tasks.
func (r *Resolver) ClearCache(cancelInflight bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memory = make(map[string]depmodel.ReleaseMetadata)
	if cancelInflight {
		for _, inf := range r.inflight {
			inf.cancel()
		}
	}
	r.inflight = make(map[string]*inflight)
	if r.disk != nil {
		_ = r.disk.Update(func(tx *bolt.Tx) error {
			if err := tx.DeleteBucket(metadataBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return err
			}
			_, err := tx.CreateBucketIfNotExists(metadataBucket)
			return err
		})
	}
}

func gobEncode(v depmodel.ReleaseMetadata) []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(v)
	return buf.Bytes()
}
