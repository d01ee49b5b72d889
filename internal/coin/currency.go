package coin

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is a price API vs_currency code.
type Currency string

const (
	USD Currency = "usd"
	EUR Currency = "eur"
	TRY Currency = "try"
	GBP Currency = "gbp"
	JPY Currency = "jpy"
)

// Currencies lists every supported currency; all of them are fetched on each poll.
var Currencies = []Currency{USD, EUR, TRY, GBP, JPY}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unsupported currency %q", s)
}

func (c Currency) Code() string { return strings.ToUpper(string(c)) }

func (c Currency) currency() *money.Currency {
	return money.New(0, c.Code()).Currency()
}

func (c Currency) Symbol() string { return c.currency().Grapheme }

// FormatPrice renders a unit price. Sub-unit prices keep up to 8 fraction
// digits so that small-cap coins stay readable.
func (c Currency) FormatPrice(v decimal.Decimal) string { return c.format(v, 8) }

// FormatAmount renders an equity amount, keeping up to 6 fraction digits
// below one unit.
func (c Currency) FormatAmount(v decimal.Decimal) string { return c.format(v, 6) }

func (c Currency) format(v decimal.Decimal, smallDigits int32) string {
	cur := c.currency()

	if !v.IsZero() && v.Abs().LessThan(decimal.NewFromInt(1)) {
		s := v.Abs().StringFixed(smallDigits)
		s = strings.TrimRight(s, "0")
		if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 < 2 {
			s += strings.Repeat("0", 2-(len(s)-dot-1))
		}
		sign := ""
		if v.IsNegative() {
			sign = "-"
		}
		return sign + cur.Grapheme + s
	}

	minor := v.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return cur.Formatter().Format(minor)
}

// FormatChange renders a 24h percent change with two decimals.
func FormatChange(v decimal.Decimal) string {
	return v.StringFixed(2) + "%"
}
