package coin

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" EUR ")
	require.NoError(t, err)
	assert.Equal(t, EUR, c)

	_, err = ParseCurrency("chf")
	assert.Error(t, err)
}

func TestCurrencySymbol(t *testing.T) {
	assert.Equal(t, "$", USD.Symbol())
	assert.Equal(t, "€", EUR.Symbol())
	assert.Equal(t, "£", GBP.Symbol())
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$50,000.00", USD.FormatPrice(decimal.NewFromInt(50000)))
	assert.Equal(t, "$0.50", USD.FormatPrice(decimal.RequireFromString("0.5")))
	assert.Equal(t, "$0.00001234", USD.FormatPrice(decimal.RequireFromString("0.00001234")))
	assert.Equal(t, "$0.00", USD.FormatPrice(decimal.Zero))
}

func TestFormatAmountCapsSmallDigits(t *testing.T) {
	assert.Equal(t, "$0.000012", USD.FormatAmount(decimal.RequireFromString("0.0000123456")))
}

func TestFormatChange(t *testing.T) {
	assert.Equal(t, "2.50%", FormatChange(decimal.RequireFromString("2.5")))
	assert.Equal(t, "-1.20%", FormatChange(decimal.RequireFromString("-1.2")))
}
