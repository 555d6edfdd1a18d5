package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	stamp := time.Date(2025, time.March, 10, 22, 15, 30, 0, loc)

	normalized := DateOnly(stamp)

	// 22:15 UTC-3 is already March 11 in UTC.
	assert.Equal(t, time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC), normalized)
	assert.Equal(t, "2025-03-11", DateKey(stamp))
}

func TestPortfolioRequest_PercentSum(t *testing.T) {
	req := &PortfolioRequest{
		Allocations: []AllocationRequest{
			{FundCode: "A", AllocationPercent: decimal.RequireFromString("33.33")},
			{FundCode: "B", AllocationPercent: decimal.RequireFromString("33.33")},
			{FundCode: "C", AllocationPercent: decimal.RequireFromString("33.34")},
		},
	}

	assert.True(t, req.PercentSum().Equal(decimal.NewFromInt(100)))
}

func TestFxRate_RateSelection(t *testing.T) {
	usdBuy := decimal.RequireFromString("29.5")
	eurSell := decimal.RequireFromString("33.0")
	rate := &FxRate{USDBuy: &usdBuy, EURSell: &eurSell}

	assert.Equal(t, &usdBuy, rate.BuyRate(CurrencyUSD))
	assert.Nil(t, rate.SellRate(CurrencyUSD))
	assert.Equal(t, &eurSell, rate.SellRate(CurrencyEUR))
	assert.Nil(t, rate.BuyRate(CurrencyEUR))
}

func TestCurrency_Valid(t *testing.T) {
	assert.True(t, CurrencyUSD.Valid())
	assert.True(t, CurrencyEUR.Valid())
	assert.False(t, Currency("gbp").Valid())
	assert.False(t, Currency("").Valid())
}

func TestNewFundSnapshot(t *testing.T) {
	units := decimal.RequireFromString("1500000")
	investors := 321
	fund := Fund{Code: "ALPHA", Name: "Alpha Growth", Type: FundTypeInvestment}
	point := PricePoint{
		FundCode:         "ALPHA",
		Date:             time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		Price:            decimal.RequireFromString("12.50"),
		CirculatingUnits: &units,
		InvestorCount:    &investors,
	}

	snap := NewFundSnapshot(fund, point)

	assert.Equal(t, "ALPHA", snap.Code)
	assert.Equal(t, "Alpha Growth", snap.Name)
	assert.Equal(t, FundTypeInvestment, snap.Type)
	assert.True(t, snap.Price.Equal(point.Price))
	assert.Equal(t, &units, snap.CirculatingUnits)
	assert.Equal(t, &investors, snap.InvestorCount)
	assert.Nil(t, snap.Change)
}
