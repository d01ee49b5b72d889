package prices

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/melihalgin1/CryptoVault/lib/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetch(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bitcoin": {"usd": 50000, "usd_24h_change": 2.5, "eur": 46000, "eur_24h_change": 2.4},
			"ethereum": {"usd": 3000, "usd_24h_change": -1.2, "jpy": null}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "demo-key", time.Second)
	snap, err := c.Fetch(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/simple/price", got.URL.Path)
	assert.Equal(t, "bitcoin,ethereum", got.URL.Query().Get("ids"))
	assert.Equal(t, "usd,eur,try,gbp,jpy", got.URL.Query().Get("vs_currencies"))
	assert.Equal(t, "true", got.URL.Query().Get("include_24hr_change"))
	assert.Equal(t, "demo-key", got.Header.Get(apiKeyHeader))

	require.Len(t, snap, 2)
	btc, ok := snap["bitcoin"].Price(coin.USD)
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(50000).Equal(btc))
	assert.True(t, decimal.RequireFromString("2.4").Equal(snap["bitcoin"].Change(coin.EUR)))

	_, ok = snap["ethereum"].Price(coin.JPY)
	assert.False(t, ok)
	assert.True(t, decimal.RequireFromString("-1.2").Equal(snap["ethereum"].Change(coin.JPY)))
}

func TestClientFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrRateLimited)
	assert.NotErrorIs(t, err, errs.ErrFetchFailed)
}

func TestClientFetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrFetchFailed)
}

func TestClientFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", time.Second).Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrFetchFailed)
}

func TestClientFetchBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), []string{"bitcoin"})
	assert.ErrorIs(t, err, errs.ErrFetchFailed)
}
