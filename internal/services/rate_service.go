package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/models"
	"fundfolio-api/internal/repositories"
)

// RateService simulates holding a foreign-currency position over a date
// range, used as a comparison baseline against fund performance. The
// position is bought at the sell rate (what the bank charges) and valued at
// each day's buy rate (what the bank pays back).
type RateService struct {
	rates  repositories.FxRepository
	logger *logrus.Logger
}

func NewRateService(rates repositories.FxRepository, logger *logrus.Logger) *RateService {
	return &RateService{rates: rates, logger: logger}
}

// Benchmark converts amount into foreign units at the start date's sell
// rate and returns the position's value on every date in [start, end] that
// carries a buy rate. Dates with no buy rate are skipped, not zero-filled.
func (s *RateService) Benchmark(ctx context.Context, currency models.Currency, amount decimal.Decimal, start, end time.Time) ([]models.BenchmarkPoint, error) {
	if !currency.Valid() {
		return nil, apierr.InvalidArgument("unsupported currency: %s", currency)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.InvalidArgument("amount must be positive")
	}

	start = models.DateOnly(start)
	end = models.DateOnly(end)
	if end.Before(start) {
		return nil, apierr.InvalidArgument("endDate must not be before startDate")
	}

	startRate, err := s.rates.RateOn(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("rate on %s: %w", models.DateKey(start), err)
	}
	if startRate == nil {
		return nil, apierr.NotFound("no exchange rate for %s", models.DateKey(start))
	}

	sell := startRate.SellRate(currency)
	if sell == nil || sell.LessThanOrEqual(decimal.Zero) {
		return nil, apierr.InvalidState("no usable %s sell rate on %s", currency, models.DateKey(start))
	}

	// Unit counts carry more precision than money fields.
	ownedUnits := amount.DivRound(*sell, 8)

	rates, err := s.rates.RatesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("rates in range: %w", err)
	}

	points := make([]models.BenchmarkPoint, 0, len(rates))
	for _, rate := range rates {
		buy := rate.BuyRate(currency)
		if buy == nil {
			continue
		}
		points = append(points, models.BenchmarkPoint{
			Date:  models.DateOnly(rate.Date),
			Value: ownedUnits.Mul(*buy).Round(2),
		})
	}

	return points, nil
}
