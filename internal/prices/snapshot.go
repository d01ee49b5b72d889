// Package prices fetches batched coin quotes from the price API and keeps a
// per-session snapshot fresh on a fixed cadence.
package prices

import (
	"context"

	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/shopspring/decimal"
)

type Fetcher interface {
	Fetch(ctx context.Context, ids []string) (Snapshot, error)
}

type Quote struct {
	Prices    map[coin.Currency]decimal.Decimal `json:"prices"`
	Change24h map[coin.Currency]decimal.Decimal `json:"change_24h"`
}

func (q Quote) Price(c coin.Currency) (decimal.Decimal, bool) {
	p, ok := q.Prices[c]
	return p, ok
}

// Change returns the 24h change for c, falling back to the USD figure which
// the API always reports.
func (q Quote) Change(c coin.Currency) decimal.Decimal {
	if ch, ok := q.Change24h[c]; ok {
		return ch
	}
	return q.Change24h[coin.USD]
}

// Snapshot maps a coin id to its latest quote.
type Snapshot map[string]Quote

func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for id, q := range s {
		out[id] = q
	}
	return out
}
