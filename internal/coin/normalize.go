// Package coin holds the canonical coin identifiers understood by the price
// API, the alias table that maps user input onto them, and the supported
// display currencies.
package coin

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var defaultWatchlist = []string{"bitcoin", "ethereum", "solana", "cardano", "dogecoin", "ripple"}

// DefaultWatchlist returns a fresh copy of the watchlist guests and new
// accounts start with.
func DefaultWatchlist() []string {
	out := make([]string, len(defaultWatchlist))
	copy(out, defaultWatchlist)
	return out
}

var builtinAliases = map[string]string{
	"shiba":     "shiba-inu",
	"shib":      "shiba-inu",
	"shiba inu": "shiba-inu",
	"bnb":       "binancecoin",
	"binance":   "binancecoin",
	"matic":     "matic-network",
	"polygon":   "matic-network",
	"pepe":      "pepe",
	"pepecoin":  "pepe",
	"doge":      "dogecoin",
	"dot":       "polkadot",
	"link":      "chainlink",
	"uni":       "uniswap",
	"ltc":       "litecoin",
	"avax":      "avalanche-2",
	"usdt":      "tether",
	"xrp":       "ripple",
}

type Normalizer struct {
	aliases  map[string]string
	rejected []string
}

// NewNormalizer builds a normalizer from the builtin alias table extended by
// extra. Alias chains are collapsed so that Normalize is idempotent; extra
// entries that would close a cycle are rejected, see Rejected.
func NewNormalizer(extra map[string]string) *Normalizer {
	raw := make(map[string]string, len(builtinAliases)+len(extra))
	for k, v := range builtinAliases {
		raw[k] = v
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rejected []string
	for _, key := range keys {
		k, v := clean(key), clean(extra[key])
		if k == "" || v == "" {
			continue
		}
		prev, had := raw[k]
		raw[k] = v
		if cyclic(raw, k) {
			if had {
				raw[k] = prev
			} else {
				delete(raw, k)
			}
			rejected = append(rejected, k)
		}
	}

	resolved := make(map[string]string, len(raw))
	for k := range raw {
		resolved[k] = resolve(raw, k)
	}

	return &Normalizer{aliases: resolved, rejected: rejected}
}

// Rejected lists the extra aliases dropped because they formed a cycle.
func (n *Normalizer) Rejected() []string {
	return slices.Clone(n.rejected)
}

func resolve(raw map[string]string, id string) string {
	for {
		next, ok := raw[id]
		if !ok || next == id {
			return id
		}
		id = next
	}
}

// cyclic reports whether following aliases from start revisits an id.
// A self mapping is a terminal entry, not a cycle.
func cyclic(raw map[string]string, start string) bool {
	seen := map[string]struct{}{start: {}}
	for id := start; ; {
		next, ok := raw[id]
		if !ok || next == id {
			return false
		}
		if _, dup := seen[next]; dup {
			return true
		}
		seen[next] = struct{}{}
		id = next
	}
}

func (n *Normalizer) Normalize(raw string) string {
	id := clean(raw)
	if fixed, ok := n.aliases[id]; ok {
		return fixed
	}
	return id
}

// NormalizeList maps every id through the alias table, drops empty entries
// and duplicates created by the mapping, and reports whether the result
// differs from the input.
func (n *Normalizer) NormalizeList(ids []string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	changed := false

	for _, raw := range ids {
		id := n.Normalize(raw)
		if id != raw {
			changed = true
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			changed = true
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out, changed
}

var Default = NewNormalizer(nil)

func Normalize(raw string) string { return Default.Normalize(raw) }

func NormalizeList(ids []string) ([]string, bool) { return Default.NormalizeList(ids) }

// LoadAliases reads a YAML mapping of alias to canonical id.
//
//	wbtc: wrapped-bitcoin
//	ton: the-open-network
func LoadAliases(path string) (map[string]string, error) {
	const op = "coin.LoadAliases"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	aliases := make(map[string]string)
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return aliases, nil
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
