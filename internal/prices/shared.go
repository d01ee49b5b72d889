package prices

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SharedFetcher collapses concurrent identical batches into one upstream
// call and serves repeats of a batch from memory until ttl passes. Errors
// are never kept.
type SharedFetcher struct {
	next  Fetcher
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]sharedEntry
}

type sharedEntry struct {
	snap    Snapshot
	expires time.Time
}

func NewSharedFetcher(next Fetcher, ttl time.Duration) *SharedFetcher {
	return &SharedFetcher{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]sharedEntry),
	}
}

func (s *SharedFetcher) Fetch(ctx context.Context, ids []string) (Snapshot, error) {
	key := cacheKey(ids)

	if snap, ok := s.lookup(key); ok {
		return snap.Clone(), nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if snap, ok := s.lookup(key); ok {
			return snap, nil
		}
		// one caller giving up must not fail the others waiting on the batch
		snap, err := s.next.Fetch(context.WithoutCancel(ctx), ids)
		if err != nil {
			return nil, err
		}
		s.store(key, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(Snapshot).Clone(), nil
}

func (s *SharedFetcher) lookup(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expires) {
		return nil, false
	}
	return entry.snap, true
}

func (s *SharedFetcher) store(key string, snap Snapshot) {
	if s.ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, entry := range s.entries {
		if !now.Before(entry.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = sharedEntry{snap: snap, expires: now.Add(s.ttl)}
}
