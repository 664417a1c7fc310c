// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// LoadFunc is the function signature for loading an artifact from a path.
// Production uses the default file loader; tests inject counting stubs.
type LoadFunc func(path string) (Predictor, error)

// Store caches loaded models by artifact path.
//
// Description:
//
//	Loading is lazy and memoized: the first Get for a path performs the
//	(potentially expensive) disk load, every later Get returns the cached
//	handle without I/O. Concurrent Gets for the same uncached path are
//	deduplicated through singleflight, so exactly one underlying load runs
//	per distinct path even under contention.
//
//	Cached entries are never mutated after insertion and are only purged
//	by ClearCache, which is not exposed through the admin surface.
//
// # Thread Safety
//
// Safe for concurrent use. The cache map is guarded by an RWMutex; load
// deduplication is handled by singleflight.
type Store struct {
	mu     sync.RWMutex
	cache  map[string]Predictor
	flight singleflight.Group
	loader LoadFunc

	// Stats
	hits   int64
	misses int64
}

// StoreOption customizes Store construction.
type StoreOption func(*Store)

// WithLoader replaces the default file loader. Used by tests to count or
// fake loads.
func WithLoader(loader LoadFunc) StoreOption {
	return func(s *Store) {
		s.loader = loader
	}
}

// NewStore creates an empty model store with the default file loader.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		cache:  make(map[string]Predictor),
		loader: loadArtifactFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the model for the given artifact path, loading it on first
// use.
//
// Outputs:
//   - Predictor: The cached or freshly loaded model.
//   - error: ErrModelNotFound if the path is absent, ErrModelLoad if the
//     file exists but does not decode to a usable model.
func (s *Store) Get(path string) (Predictor, error) {
	s.mu.RLock()
	p, ok := s.cache[path]
	s.mu.RUnlock()
	if ok {
		atomic.AddInt64(&s.hits, 1)
		return p, nil
	}
	atomic.AddInt64(&s.misses, 1)

	v, err, _ := s.flight.Do(path, func() (any, error) {
		// Re-check under the flight: a concurrent loader may have
		// populated the cache between the RUnlock and Do.
		s.mu.RLock()
		cached, ok := s.cache[path]
		s.mu.RUnlock()
		if ok {
			return cached, nil
		}

		start := time.Now()
		loaded, err := s.loader(path)
		if err != nil {
			return nil, err
		}
		slog.Info("model loaded",
			"path", path,
			"load_ms", float64(time.Since(start).Microseconds())/1000.0,
			"feature_count", loaded.FeatureCount(),
		)

		s.mu.Lock()
		s.cache[path] = loaded
		s.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Predictor), nil
}

// ClearCache drops every cached model. Subsequent Gets reload from disk.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string]Predictor)
	s.mu.Unlock()
	slog.Info("model cache cleared")
}

// Stats reports cache hit/miss counters since process start.
func (s *Store) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// loadArtifactFile is the default LoadFunc: open the file and decode it.
func loadArtifactFile(path string) (Predictor, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrModelLoad, path, err)
	}
	defer f.Close()

	return DecodeArtifact(f)
}

// =============================================================================
// Variant resolution
// =============================================================================

// PathProvider supplies the current artifact paths per deployment slot.
// deployment.State satisfies this interface.
type PathProvider interface {
	StablePath() string
	CanaryPath() string
}

// Resolver resolves deployment slots to loaded models through the store.
type Resolver struct {
	store *Store
	paths PathProvider
}

// NewResolver binds a store to a path provider.
func NewResolver(store *Store, paths PathProvider) *Resolver {
	return &Resolver{store: store, paths: paths}
}

// Stable returns the current stable model.
func (r *Resolver) Stable() (Predictor, error) {
	return r.store.Get(r.paths.StablePath())
}

// Canary returns the current canary model, or (nil, nil) when no canary
// is deployed.
func (r *Resolver) Canary() (Predictor, error) {
	path := r.paths.CanaryPath()
	if path == "" {
		return nil, nil
	}
	return r.store.Get(path)
}
