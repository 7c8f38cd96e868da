package repository

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/smellovision/scentd/internal/domain/fingerprint"
	"github.com/smellovision/scentd/internal/domain/model"
	"github.com/smellovision/scentd/pkg/metrics"
)

// Default cache configuration constants.
const (
	defaultTTL      = 5 * time.Minute
	defaultCapacity = 100
)

// entry is a completed cache record. In-flight computations are not
// represented here; they live in the singleflight group.
type entry struct {
	pred     model.ScentPrediction
	storedAt time.Time
	elem     *list.Element // position in the recency list
}

// MemStore implements Store with a TTL-and-LRU bounded in-memory map.
//
// The mutex guards only map and recency-list bookkeeping; it is never held
// across a compute call, so unrelated fingerprints proceed independently.
// Per-fingerprint mutual exclusion of computations is delegated to a
// singleflight group keyed by the fingerprint.
type MemStore struct {
	mu      sync.Mutex
	entries map[fingerprint.Fingerprint]*entry
	lru     *list.List // front = most recently used
	flight  singleflight.Group

	ttl      time.Duration
	capacity int
	clock    func() time.Time
	closed   bool
}

// NewMemStore creates a new in-memory prediction cache with options.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		entries:  make(map[fingerprint.Fingerprint]*entry),
		lru:      list.New(),
		ttl:      defaultTTL,
		capacity: defaultCapacity,
		clock:    time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateCacheCapacity(s.capacity)
	metrics.UpdateCacheEntries(0)

	return s
}

// GetOrCompute implements Store.
func (s *MemStore) GetOrCompute(ctx context.Context, fp fingerprint.Fingerprint, compute ComputeFunc) (model.ScentPrediction, bool, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return model.ScentPrediction{}, false, ErrClosed
	}

	if pred, ok := s.lookup(fp); ok {
		metrics.RecordCacheHit()
		return pred, true, nil
	}
	metrics.RecordCacheMiss()

	// Compute on a context detached from this caller: if the originating
	// request disconnects mid-flight, waiters still get their result and
	// the cache is still populated.
	base := context.WithoutCancel(ctx)

	v, err, shared := s.flight.Do(fp.String(), func() (interface{}, error) {
		// A previous leader may have stored the entry between our lookup
		// and joining the flight.
		if pred, ok := s.lookup(fp); ok {
			return pred, nil
		}
		pred, err := compute(base)
		if err != nil {
			return nil, err
		}
		if err := s.put(fp, pred); err != nil {
			return pred, err
		}
		return pred, nil
	})
	if shared {
		metrics.RecordSingleflightShared()
	}
	if err != nil {
		return model.ScentPrediction{}, false, err
	}
	pred, ok := v.(model.ScentPrediction)
	if !ok {
		return model.ScentPrediction{}, false, ErrCorruptEntry
	}
	return pred, false, nil
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, fp fingerprint.Fingerprint) (model.ScentPrediction, bool) {
	return s.lookup(fp)
}

// lookup returns a fresh entry and refreshes its recency. Stale entries
// are removed so the next access recomputes instead of silently serving
// old data.
func (s *MemStore) lookup(fp fingerprint.Fingerprint) (model.ScentPrediction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[fp]
	if !ok {
		return model.ScentPrediction{}, false
	}
	if s.ttl > 0 && s.clock().Sub(e.storedAt) >= s.ttl {
		s.removeLocked(fp, e)
		metrics.RecordCacheStale()
		return model.ScentPrediction{}, false
	}
	s.lru.MoveToFront(e.elem)
	return e.pred, true
}

// put stores a completed prediction, evicting the least recently used
// entries beyond capacity.
func (s *MemStore) put(fp fingerprint.Fingerprint, pred model.ScentPrediction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if e, ok := s.entries[fp]; ok {
		e.pred = pred
		e.storedAt = s.clock()
		s.lru.MoveToFront(e.elem)
		return nil
	}

	e := &entry{pred: pred, storedAt: s.clock()}
	e.elem = s.lru.PushFront(fp)
	s.entries[fp] = e

	for s.capacity > 0 && len(s.entries) > s.capacity {
		back := s.lru.Back()
		if back == nil {
			break
		}
		victim := back.Value.(fingerprint.Fingerprint)
		s.removeLocked(victim, s.entries[victim])
		metrics.RecordCacheEviction()
	}

	metrics.UpdateCacheEntries(len(s.entries))
	return nil
}

// removeLocked deletes an entry. Caller holds the lock.
func (s *MemStore) removeLocked(fp fingerprint.Fingerprint, e *entry) {
	if e == nil {
		return
	}
	s.lru.Remove(e.elem)
	delete(s.entries, fp)
	metrics.UpdateCacheEntries(len(s.entries))
}

// Len implements Store.
func (s *MemStore) Len(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Close implements Store.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.entries = make(map[fingerprint.Fingerprint]*entry)
	s.lru.Init()
	metrics.UpdateCacheEntries(0)
	return nil
}
