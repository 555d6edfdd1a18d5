package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundType categorizes a fund by the kind of assets it pools.
type FundType string

const (
	FundTypeInvestment     FundType = "INVESTMENT"
	FundTypePension        FundType = "PENSION"
	FundTypeExchangeTraded FundType = "EXCHANGE_TRADED"
	FundTypeRealEstate     FundType = "REAL_ESTATE_INVESTMENT"
	FundTypeVentureCapital FundType = "VENTURE_CAPITAL"
)

// Fund is the immutable identity of an investable fund. Funds are created
// once, when first seen by the import pipeline, and referenced by code
// everywhere else.
type Fund struct {
	Code      string    `bson:"code" json:"code"`
	Name      string    `bson:"name" json:"name"`
	Type      FundType  `bson:"type" json:"type"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// PricePoint is one fund's published unit price and related stats for a
// single calendar date. There is at most one point per (fund, date) and a
// point is never rewritten once stored.
type PricePoint struct {
	FundCode         string           `bson:"fund_code" json:"fund_code"`
	Date             time.Time        `bson:"date" json:"date"`
	Price            decimal.Decimal  `bson:"price" json:"price"`
	CirculatingUnits *decimal.Decimal `bson:"circulating_units,omitempty" json:"circulating_units,omitempty"`
	InvestorCount    *int             `bson:"investor_count,omitempty" json:"investor_count,omitempty"`
	TotalValue       *decimal.Decimal `bson:"total_value,omitempty" json:"total_value,omitempty"`
	CreatedAt        time.Time        `bson:"created_at" json:"-"`
}

// FundSnapshot joins a fund's identity with one of its price points. It is
// the row shape returned by the fund listing and ranking operations; the
// Change field is only populated by the top-movers ranking.
type FundSnapshot struct {
	Code             string           `json:"code"`
	Name             string           `json:"name"`
	Type             FundType         `json:"type"`
	Date             time.Time        `json:"date"`
	Price            decimal.Decimal  `json:"price"`
	CirculatingUnits *decimal.Decimal `json:"circulating_units,omitempty"`
	InvestorCount    *int             `json:"investor_count,omitempty"`
	TotalValue       *decimal.Decimal `json:"total_value,omitempty"`
	Change           *decimal.Decimal `json:"change,omitempty"`
}

// NewFundSnapshot builds a snapshot from a fund and one of its price rows.
func NewFundSnapshot(fund Fund, point PricePoint) FundSnapshot {
	return FundSnapshot{
		Code:             fund.Code,
		Name:             fund.Name,
		Type:             fund.Type,
		Date:             point.Date,
		Price:            point.Price,
		CirculatingUnits: point.CirculatingUnits,
		InvestorCount:    point.InvestorCount,
		TotalValue:       point.TotalValue,
	}
}

// DateOnly truncates t to its calendar date in UTC. Price and rate rows are
// keyed by date, so every comparison goes through this normalization.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats a date the way series maps and cache keys expect it.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
