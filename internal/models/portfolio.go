package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Portfolio is a user-built basket of fund positions. TotalAmount and the
// allocation list are fixed at creation time; an update replaces the whole
// allocation set rather than mutating individual rows.
type Portfolio struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       int64              `bson:"user_id" json:"user_id"`
	Name         string             `bson:"name" json:"name"`
	TotalAmount  decimal.Decimal    `bson:"total_amount" json:"total_amount"`
	CreationDate time.Time          `bson:"creation_date" json:"creation_date"`
	Allocations  []Allocation       `bson:"allocations" json:"allocations"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Allocation assigns a percentage of the portfolio's capital to one fund.
// OwnedUnits is derived once, from the fund's price on the portfolio's
// creation date, and represents a fixed unit position from then on.
type Allocation struct {
	FundCode          string          `bson:"fund_code" json:"fund_code"`
	AllocationPercent decimal.Decimal `bson:"allocation_percent" json:"allocation_percent"`
	OwnedUnits        decimal.Decimal `bson:"owned_units" json:"owned_units"`
}

// PortfolioRequest is the payload for creating or fully replacing a
// portfolio. The same shape serves both operations, mirroring the
// delete-and-recreate update semantics.
type PortfolioRequest struct {
	Name         string              `json:"name" binding:"required"`
	TotalAmount  decimal.Decimal     `json:"total_amount" binding:"required"`
	CreationDate time.Time           `json:"creation_date" binding:"required" time_format:"2006-01-02"`
	Allocations  []AllocationRequest `json:"allocations" binding:"required,min=1,dive"`
}

// AllocationRequest is one requested fund allocation.
type AllocationRequest struct {
	FundCode          string          `json:"fund_code" binding:"required,fundcode"`
	AllocationPercent decimal.Decimal `json:"allocation_percent" binding:"required"`
}

// PercentSum adds up the requested allocation percentages.
func (r *PortfolioRequest) PercentSum() decimal.Decimal {
	sum := decimal.Zero
	for _, a := range r.Allocations {
		sum = sum.Add(a.AllocationPercent)
	}
	return sum
}

// PortfolioFundView is one allocation of a portfolio valued at the fund's
// latest available price. A fund with no price history values at zero.
type PortfolioFundView struct {
	FundCode          string          `json:"fund_code"`
	FundName          string          `json:"fund_name"`
	AllocationPercent decimal.Decimal `json:"allocation_percent"`
	OwnedUnits        decimal.Decimal `json:"owned_units"`
	CurrentValue      decimal.Decimal `json:"current_value"`
}

// PortfolioView is a portfolio with its current market value, the shape
// handed to callers after every portfolio operation.
type PortfolioView struct {
	ID           primitive.ObjectID  `json:"id"`
	UserID       int64               `json:"user_id"`
	Name         string              `json:"name"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	CreationDate time.Time           `json:"creation_date"`
	CurrentValue decimal.Decimal     `json:"current_value"`
	Funds        []PortfolioFundView `json:"funds"`
}

// ValuePoint is the portfolio's aggregate value on one date.
type ValuePoint struct {
	Date       time.Time       `json:"date"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// FundChangeSummary reports one fund's percent price change between its
// first and last price found inside a queried range.
type FundChangeSummary struct {
	FundCode          string          `json:"fund_code"`
	AllocationPercent decimal.Decimal `json:"allocation_percent"`
	PercentChange     decimal.Decimal `json:"percent_change"`
}

// ValueSeries is the result of valuing a portfolio over a date range: the
// date-ascending value curve plus per-fund change summaries.
type ValueSeries struct {
	Points      []ValuePoint        `json:"points"`
	FundChanges []FundChangeSummary `json:"fund_changes"`
}
