package prices

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryKV struct {
	data    map[string]string
	ttls    map[string]time.Duration
	readErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) *redis.StringCmd {
	if m.readErr != nil {
		return redis.NewStringResult("", m.readErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memoryKV) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	m.data[key] = string(value.([]byte))
	m.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestCachedFetcherServesRepeatRequestsFromCache(t *testing.T) {
	f := &fakeFetcher{snap: Snapshot{"bitcoin": quote("50000", "2.5"), "ethereum": quote("3000", "-1.2")}}
	kv := newMemoryKV()
	c := NewCachedFetcher(f, kv, 30*time.Second, discardLogger())

	first, err := c.Fetch(context.Background(), []string{"ethereum", "bitcoin"})
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.count())
	assert.Equal(t, 30*time.Second, kv.ttls["prices:bitcoin,ethereum"])
	assert.True(t, first["bitcoin"].Prices["usd"].Equal(second["bitcoin"].Prices["usd"]))
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	f := &fakeFetcher{err: errs.ErrRateLimited}
	kv := newMemoryKV()
	c := NewCachedFetcher(f, kv, time.Minute, discardLogger())

	_, err := c.Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	assert.Empty(t, kv.data)
}

func TestCachedFetcherFallsThroughOnCacheFailure(t *testing.T) {
	f := &fakeFetcher{snap: Snapshot{"bitcoin": quote("1", "0")}}
	kv := newMemoryKV()
	kv.readErr = errors.New("connection refused")
	c := NewCachedFetcher(f, kv, time.Minute, discardLogger())

	snap, err := c.Fetch(context.Background(), []string{"bitcoin"})
	require.NoError(t, err)
	assert.Len(t, snap, 1)
	assert.Equal(t, 1, f.count())
}
