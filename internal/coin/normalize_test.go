package coin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "doge", want: "dogecoin"},
		{raw: "  SHIBA INU ", want: "shiba-inu"},
		{raw: "BNB", want: "binancecoin"},
		{raw: "bitcoin", want: "bitcoin"},
		{raw: "btc", want: "btc"},
		{raw: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	for alias := range builtinAliases {
		once := Normalize(alias)
		assert.Equal(t, once, Normalize(once), "alias %q", alias)
	}
}

func TestNormalizeListReportsChanges(t *testing.T) {
	clean, changed := NormalizeList([]string{"bitcoin", "ethereum"})
	assert.False(t, changed)
	assert.Equal(t, []string{"bitcoin", "ethereum"}, clean)

	clean, changed = NormalizeList([]string{"bitcoin", "doge", "shib"})
	assert.True(t, changed)
	assert.Equal(t, []string{"bitcoin", "dogecoin", "shiba-inu"}, clean)
}

func TestNormalizeListDropsDuplicatesCreatedByAliases(t *testing.T) {
	clean, changed := NormalizeList([]string{"dogecoin", "doge", "xrp", "ripple"})
	assert.True(t, changed)
	assert.Equal(t, []string{"dogecoin", "ripple"}, clean)
}

func TestNewNormalizerCollapsesChains(t *testing.T) {
	n := NewNormalizer(map[string]string{
		"wbtc":    "wrapped",
		"wrapped": "wrapped-bitcoin",
	})

	assert.Equal(t, "wrapped-bitcoin", n.Normalize("wbtc"))
	assert.Equal(t, "wrapped-bitcoin", n.Normalize(n.Normalize("wbtc")))
	assert.Equal(t, "dogecoin", n.Normalize("doge"))
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ton: the-open-network\nWBTC: wrapped-bitcoin\n"), 0o600))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)

	n := NewNormalizer(aliases)
	assert.Equal(t, "the-open-network", n.Normalize("TON"))
	assert.Equal(t, "wrapped-bitcoin", n.Normalize("wbtc"))
}

func TestLoadAliasesMissingFile(t *testing.T) {
	_, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultWatchlistIsACopy(t *testing.T) {
	a := DefaultWatchlist()
	a[0] = "changed"
	assert.Equal(t, "bitcoin", DefaultWatchlist()[0])
}

func TestNewNormalizerRejectsCycles(t *testing.T) {
	n := NewNormalizer(map[string]string{
		"dogecoin": "doge",
		"a":        "b",
		"b":        "a",
		"wbtc":     "wrapped-bitcoin",
	})

	assert.Equal(t, "dogecoin", n.Normalize("doge"))
	assert.Equal(t, "dogecoin", n.Normalize("dogecoin"))
	assert.Equal(t, "b", n.Normalize("a"))
	assert.Equal(t, "b", n.Normalize("b"))
	assert.Equal(t, "wrapped-bitcoin", n.Normalize("wbtc"))
	assert.Equal(t, []string{"b", "dogecoin"}, n.Rejected())

	for _, id := range []string{"doge", "dogecoin", "a", "b", "wbtc", "shib"} {
		once := n.Normalize(id)
		assert.Equal(t, once, n.Normalize(once), "id %q", id)
	}
}
