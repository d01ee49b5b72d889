// Package watchlist keeps the ordered set of coins a session tracks together
// with the raw holdings quantities the user typed in.
package watchlist

import (
	"slices"
	"strings"
	"sync"

	"github.com/melihalgin1/CryptoVault/internal/coin"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu         sync.RWMutex
	normalizer *coin.Normalizer
	watched    []string
	holdings   map[string]string
}

func New(normalizer *coin.Normalizer) *Store {
	if normalizer == nil {
		normalizer = coin.Default
	}
	return &Store{
		normalizer: normalizer,
		watched:    coin.DefaultWatchlist(),
		holdings:   make(map[string]string),
	}
}

// Add normalizes raw and appends it. It reports whether the watchlist changed;
// empty input and already watched coins are no-ops.
func (s *Store) Add(raw string) (string, bool) {
	id := s.normalizer.Normalize(raw)
	if id == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.watched, id) {
		return id, false
	}
	s.watched = append(s.watched, id)
	return id, true
}

// Remove drops id from the watchlist. Its holding is kept so that a re-added
// coin shows the previous quantity.
func (s *Store) Remove(id string) bool {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.watched, id)
	if i < 0 {
		return false
	}
	s.watched = slices.Delete(s.watched, i, i+1)
	return true
}

// SetHolding stores the raw value verbatim; it is parsed on read.
func (s *Store) SetHolding(id, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.holdings[id] = raw
}

func (s *Store) Holding(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.holdings[id]
}

// Quantity parses the holding for id. Invalid or negative input counts as zero.
func (s *Store) Quantity(id string) decimal.Decimal {
	return ParseQuantity(s.Holding(id))
}

func (s *Store) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Contains(s.watched, id)
}

func (s *Store) Watched() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.watched)
}

func (s *Store) Holdings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.holdings))
	for k, v := range s.holdings {
		out[k] = v
	}
	return out
}

// Reset replaces both structures. A nil watchlist means the default one.
func (s *Store) Reset(watched []string, holdings map[string]string) {
	if watched == nil {
		watched = coin.DefaultWatchlist()
	}

	h := make(map[string]string, len(holdings))
	for k, v := range holdings {
		h[k] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.watched = dedupe(watched)
	s.holdings = h
}

func ParseQuantity(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	q, err := decimal.NewFromString(raw)
	if err != nil || q.IsNegative() {
		return decimal.Zero
	}
	return q
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
