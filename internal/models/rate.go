package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency identifies a foreign currency the benchmark simulator supports.
type Currency string

const (
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
)

// Valid reports whether the currency is one the rate table carries.
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyEUR
}

// FxRate holds the published buy/sell exchange rates for one calendar date.
// Individual rates may be absent for a date (nil), which callers treat as
// expected sparseness rather than an error.
type FxRate struct {
	Date      time.Time        `bson:"date" json:"date"`
	USDBuy    *decimal.Decimal `bson:"usd_buy,omitempty" json:"usd_buy,omitempty"`
	USDSell   *decimal.Decimal `bson:"usd_sell,omitempty" json:"usd_sell,omitempty"`
	EURBuy    *decimal.Decimal `bson:"eur_buy,omitempty" json:"eur_buy,omitempty"`
	EURSell   *decimal.Decimal `bson:"eur_sell,omitempty" json:"eur_sell,omitempty"`
	CreatedAt time.Time        `bson:"created_at" json:"-"`
}

// BuyRate returns the buy rate for the given currency, nil if unpublished.
func (r *FxRate) BuyRate(c Currency) *decimal.Decimal {
	if c == CurrencyEUR {
		return r.EURBuy
	}
	return r.USDBuy
}

// SellRate returns the sell rate for the given currency, nil if unpublished.
func (r *FxRate) SellRate(c Currency) *decimal.Decimal {
	if c == CurrencyEUR {
		return r.EURSell
	}
	return r.USDSell
}

// BenchmarkPoint is one day of a simulated foreign-currency position:
// the position's value in local currency on that date.
type BenchmarkPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}
