package watchlist

import (
	"testing"

	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewStartsWithDefaults(t *testing.T) {
	s := New(nil)
	assert.Equal(t, coin.DefaultWatchlist(), s.Watched())
	assert.Empty(t, s.Holdings())
}

func TestAdd(t *testing.T) {
	s := New(nil)
	s.Reset([]string{"bitcoin"}, nil)

	id, added := s.Add("  DOGE ")
	assert.True(t, added)
	assert.Equal(t, "dogecoin", id)
	assert.Equal(t, []string{"bitcoin", "dogecoin"}, s.Watched())
}

func TestAddDuplicateIsNoop(t *testing.T) {
	s := New(nil)
	s.Reset([]string{"bitcoin", "dogecoin"}, nil)

	_, added := s.Add("doge")
	assert.False(t, added)
	assert.Len(t, s.Watched(), 2)

	_, added = s.Add("bitcoin")
	assert.False(t, added)
	assert.Len(t, s.Watched(), 2)
}

func TestAddEmptyIsNoop(t *testing.T) {
	s := New(nil)
	before := s.Watched()

	_, added := s.Add("   ")
	assert.False(t, added)
	assert.Equal(t, before, s.Watched())
}

func TestRemoveKeepsOrderAndHolding(t *testing.T) {
	s := New(nil)
	s.Reset([]string{"bitcoin", "ethereum", "solana"}, map[string]string{"ethereum": "2"})

	assert.True(t, s.Remove("ethereum"))
	assert.Equal(t, []string{"bitcoin", "solana"}, s.Watched())
	assert.Equal(t, "2", s.Holding("ethereum"))

	assert.False(t, s.Remove("ethereum"))
}

func TestSetHoldingStoresRawValue(t *testing.T) {
	s := New(nil)
	s.SetHolding("bitcoin", "1.5abc")

	assert.Equal(t, "1.5abc", s.Holding("bitcoin"))
	assert.True(t, s.Quantity("bitcoin").IsZero())

	s.SetHolding("bitcoin", "0.25")
	assert.True(t, decimal.RequireFromString("0.25").Equal(s.Quantity("bitcoin")))
}

func TestResetDefaultsAndCopies(t *testing.T) {
	s := New(nil)
	holdings := map[string]string{"bitcoin": "1"}
	s.Reset(nil, holdings)
	holdings["bitcoin"] = "99"

	assert.Equal(t, coin.DefaultWatchlist(), s.Watched())
	assert.Equal(t, "1", s.Holding("bitcoin"))
}

func TestParseQuantity(t *testing.T) {
	assert.True(t, ParseQuantity("").IsZero())
	assert.True(t, ParseQuantity("abc").IsZero())
	assert.True(t, ParseQuantity("-3").IsZero())
	assert.True(t, decimal.NewFromInt(3).Equal(ParseQuantity(" 3 ")))
}
