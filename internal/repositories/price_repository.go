package repositories

import (
	"context"
	"time"

	"fundfolio-api/internal/models"
)

// PriceRepository provides read access to the fund and price history store.
// Price rows are append-only; nothing here mutates them. Lookups that can
// legitimately miss return (nil, nil) so callers decide whether absence is
// an error or expected sparseness.
type PriceRepository interface {
	// FundByCode retrieves one fund identity, nil if the code is unknown.
	FundByCode(ctx context.Context, code string) (*models.Fund, error)

	// ListFunds retrieves all known funds.
	ListFunds(ctx context.Context) ([]models.Fund, error)

	// LatestPriceFor retrieves the newest price row for one fund, nil if
	// the fund has no price history.
	LatestPriceFor(ctx context.Context, code string) (*models.PricePoint, error)

	// LatestPriceForAll retrieves, for every fund with history, its price
	// row at that fund's own maximum date.
	LatestPriceForAll(ctx context.Context) ([]models.PricePoint, error)

	// PriceOn retrieves the price row for (fund, date) exactly, nil if the
	// fund published no price on that date.
	PriceOn(ctx context.Context, code string, date time.Time) (*models.PricePoint, error)

	// PricesInRange retrieves one fund's price rows ascending by date.
	// A zero start or end leaves that side of the range unbounded.
	PricesInRange(ctx context.Context, code string, start, end time.Time) ([]models.PricePoint, error)

	// PricesOnDate retrieves every fund's price row for a single date.
	PricesOnDate(ctx context.Context, date time.Time) ([]models.PricePoint, error)

	// FundsWithPriceOnBothDates retrieves funds that published a price on
	// both dates exactly.
	FundsWithPriceOnBothDates(ctx context.Context, start, end time.Time) ([]models.Fund, error)
}
