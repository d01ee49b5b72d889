package prices

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedFetcherCollapsesConcurrentBatches(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{
		snap: Snapshot{"bitcoin": quote("50000", "2.5")},
		hook: func() { <-release },
	}
	s := NewSharedFetcher(f, time.Minute)

	var wg sync.WaitGroup
	results := make([]Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := s.Fetch(context.Background(), []string{"bitcoin"})
			assert.NoError(t, err)
			results[i] = snap
		}(i)
	}

	require.Eventually(t, func() bool { return f.count() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, f.count())
	for _, snap := range results {
		assert.Contains(t, snap, "bitcoin")
	}
}

func TestSharedFetcherExpiresEntries(t *testing.T) {
	f := &fakeFetcher{snap: Snapshot{"bitcoin": quote("50000", "2.5"), "ethereum": quote("3000", "1")}}
	s := NewSharedFetcher(f, 30*time.Second)
	now := time.Now()
	s.now = func() time.Time { return now }

	_, err := s.Fetch(context.Background(), []string{"ethereum", "bitcoin"})
	require.NoError(t, err)
	_, err = s.Fetch(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.count())

	now = now.Add(31 * time.Second)
	_, err = s.Fetch(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.count())
}

func TestSharedFetcherDoesNotKeepErrors(t *testing.T) {
	f := &fakeFetcher{err: errs.ErrRateLimited}
	s := NewSharedFetcher(f, time.Minute)

	_, err := s.Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrRateLimited)

	f.set(Snapshot{"bitcoin": quote("50000", "2.5")}, nil)
	snap, err := s.Fetch(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Contains(t, snap, "bitcoin")
	assert.Equal(t, 2, f.count())
}

func TestSharedFetcherHandsOutCopies(t *testing.T) {
	f := &fakeFetcher{snap: Snapshot{"bitcoin": quote("50000", "2.5")}}
	s := NewSharedFetcher(f, time.Minute)

	first, err := s.Fetch(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	delete(first, "bitcoin")

	second, err := s.Fetch(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Contains(t, second, "bitcoin")
	assert.Equal(t, 1, f.count())
}
