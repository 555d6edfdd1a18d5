package repositories

import (
	"context"
	"time"

	"fundfolio-api/internal/models"
)

// FxRepository provides read access to the daily exchange-rate table.
type FxRepository interface {
	// RateOn retrieves the rate row for one date exactly, nil if no rates
	// were published that day.
	RateOn(ctx context.Context, date time.Time) (*models.FxRate, error)

	// RatesInRange retrieves rate rows in [start, end] ascending by date.
	RatesInRange(ctx context.Context, start, end time.Time) ([]models.FxRate, error)
}
