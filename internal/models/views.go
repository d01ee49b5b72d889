package models

import "github.com/shopspring/decimal"

type UserView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type CoinCard struct {
	ID         string          `json:"id"`
	HasData    bool            `json:"hasData"`
	Price      decimal.Decimal `json:"price"`
	PriceText  string          `json:"priceText,omitempty"`
	Change24h  decimal.Decimal `json:"change24h"`
	ChangeText string          `json:"changeText,omitempty"`
	Holding    string          `json:"holding,omitempty"`
	Equity     decimal.Decimal `json:"equity"`
	EquityText string          `json:"equityText,omitempty"`
}

// DashboardView is everything the browser needs to render one session.
// ViewID identifies the dashboard to the page; it is not the session cookie.
type DashboardView struct {
	ViewID          string          `json:"viewID"`
	State           string          `json:"state"`
	Guest           bool            `json:"guest"`
	User            *UserView       `json:"user,omitempty"`
	Language        string          `json:"language"`
	Currency        string          `json:"currency"`
	CurrencySymbol  string          `json:"currencySymbol"`
	Loading         bool            `json:"loading"`
	Error           string          `json:"error,omitempty"`
	LoadError       string          `json:"loadError,omitempty"`
	Cards           []CoinCard      `json:"cards"`
	TotalEquity     decimal.Decimal `json:"totalEquity"`
	TotalEquityText string          `json:"totalEquityText,omitempty"`
	Detail          *CoinCard       `json:"detail,omitempty"`
	ShowAccount     bool            `json:"showAccount"`
}
