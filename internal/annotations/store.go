// Package annotations caches per-image annotation records fetched from the
// annotation service and orders writes to the same image.
package annotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/reviewbox/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds per-image fetches when the batched endpoint is
// unavailable.
const DefaultConcurrency = 8

// ErrBulkUnsupported is returned by a BulkBackend that has no batched endpoint.
var ErrBulkUnsupported = errors.New("bulk annotation fetch not supported")

// Backend is the annotation service for one collection.
type Backend interface {
	Fetch(ctx context.Context, image string) (models.Annotation, error)
	Save(ctx context.Context, image string, boxes []models.Box) error
}

// BulkBackend is implemented by backends with a batched fetch.
type BulkBackend interface {
	FetchBulk(ctx context.Context, images []string) (map[string][]models.Box, error)
}

// Store is the client-side annotation cache of one view.
type Store struct {
	backend     Backend
	concurrency int
	logger      *slog.Logger

	mu       sync.RWMutex
	cache    map[string]models.Annotation
	versions map[string]uint64

	writeMu sync.Mutex
	writes  map[string]*sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency sets the per-image fetch limit used by Bulk's fallback.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns an empty store over backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		concurrency: DefaultConcurrency,
		logger:      slog.Default(),
		cache:       make(map[string]models.Annotation),
		versions:    make(map[string]uint64),
		writes:      make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Peek returns the cached record without fetching.
func (s *Store) Peek(image string) (models.Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.cache[image]
	if !ok {
		return models.Annotation{}, false
	}
	return a.Clone(), true
}

// maxRefetch bounds how often Get retries a fetch overtaken by a write.
const maxRefetch = 3

// Get returns the record for image, fetching and caching it on a miss.
// Concurrent misses for the same image may each fetch. A fetch that a
// Save, Set or Invalidate overtakes is discarded and repeated.
func (s *Store) Get(ctx context.Context, image string) (models.Annotation, error) {
	var a models.Annotation
	for range maxRefetch {
		s.mu.RLock()
		cached, ok := s.cache[image]
		ver := s.versions[image]
		s.mu.RUnlock()
		if ok {
			return cached.Clone(), nil
		}

		var err error
		a, err = s.backend.Fetch(ctx, image)
		if err != nil {
			return models.Annotation{}, fmt.Errorf("fetch annotation %s: %w", image, err)
		}
		a.Boxes = models.Normalize(a.Boxes)

		s.mu.Lock()
		if s.versions[image] == ver {
			s.cache[image] = a.Clone()
			s.mu.Unlock()
			return a.Clone(), nil
		}
		s.mu.Unlock()
		s.logger.Debug("discarded stale annotation fetch", "image", image)
	}
	return a.Clone(), nil
}

// Set replaces the cached record for image.
func (s *Store) Set(image string, a models.Annotation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[image] = a.Clone()
	s.versions[image]++
}

// Invalidate drops the cached record for image.
func (s *Store) Invalidate(image string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, image)
	s.versions[image]++
}

// imageLock serializes writes to one image so saves land in submission order.
func (s *Store) imageLock(image string) *sync.Mutex {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	m, ok := s.writes[image]
	if !ok {
		m = &sync.Mutex{}
		s.writes[image] = m
	}
	return m
}

// Save overwrites the stored box list of image. On success the cache holds
// the saved list; on failure the cache is left untouched.
func (s *Store) Save(ctx context.Context, image string, boxes []models.Box) (models.Annotation, error) {
	lock := s.imageLock(image)
	lock.Lock()
	defer lock.Unlock()
	return s.save(ctx, image, models.Normalize(boxes))
}

func (s *Store) save(ctx context.Context, image string, boxes []models.Box) (models.Annotation, error) {
	if err := s.backend.Save(ctx, image, boxes); err != nil {
		s.logger.Warn("annotation save failed", "image", image, "err", err)
		return models.Annotation{}, fmt.Errorf("save annotation %s: %w", image, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[image]++
	prev, ok := s.cache[image]
	if !ok {
		// Native size unknown; the next Get refetches.
		return models.Annotation{Boxes: boxes}, nil
	}
	a := models.Annotation{Boxes: append([]models.Box{}, boxes...), W: prev.W, H: prev.H}
	s.cache[image] = a
	return a.Clone(), nil
}

// Append adds boxes to the persisted list of image. The stored list is
// refetched first so boxes saved elsewhere are kept.
func (s *Store) Append(ctx context.Context, image string, boxes ...models.Box) (models.Annotation, error) {
	lock := s.imageLock(image)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.backend.Fetch(ctx, image)
	if err != nil {
		return models.Annotation{}, fmt.Errorf("fetch annotation %s: %w", image, err)
	}
	merged := models.Normalize(append(append([]models.Box{}, current.Boxes...), boxes...))
	a, err := s.save(ctx, image, merged)
	if err != nil {
		return models.Annotation{}, err
	}
	if a.W == 0 && a.H == 0 {
		a.W, a.H = current.W, current.H
		s.Set(image, a)
	}
	return a, nil
}

// TagNull replaces the box list of image with the null sentinel.
func (s *Store) TagNull(ctx context.Context, image string) (models.Annotation, error) {
	return s.Save(ctx, image, []models.Box{models.NullBox()})
}

// Bulk fetches box lists for many images. The batched endpoint is tried
// first; on failure each image is fetched individually with bounded
// concurrency. Images whose fetch fails are omitted. Results are not cached.
func (s *Store) Bulk(ctx context.Context, images []string) (map[string][]models.Box, error) {
	out := make(map[string][]models.Box, len(images))
	if len(images) == 0 {
		return out, nil
	}

	if bb, ok := s.backend.(BulkBackend); ok {
		items, err := bb.FetchBulk(ctx, images)
		if err == nil {
			for _, img := range images {
				out[img] = models.Normalize(items[img])
			}
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Debug("bulk annotation fetch unavailable, falling back", "images", len(images), "err", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, img := range images {
		g.Go(func() error {
			a, err := s.backend.Fetch(gctx, img)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("annotation fetch failed", "image", img, "err", err)
				return nil
			}
			mu.Lock()
			out[img] = models.Normalize(a.Boxes)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
