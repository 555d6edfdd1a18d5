package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/models"
)

type MockFxRepository struct {
	mock.Mock
}

func (m *MockFxRepository) RateOn(ctx context.Context, date time.Time) (*models.FxRate, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FxRate), args.Error(1)
}

func (m *MockFxRepository) RatesInRange(ctx context.Context, start, end time.Time) ([]models.FxRate, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.FxRate), args.Error(1)
}

func dp(value string) *decimal.Decimal {
	v := decimal.RequireFromString(value)
	return &v
}

func TestRateService_Benchmark(t *testing.T) {
	ctx := context.Background()
	start := day(2025, time.April, 1)
	end := day(2025, time.April, 30)

	t.Run("buys at the sell rate and values daily at the buy rate", func(t *testing.T) {
		mockRates := new(MockFxRepository)
		service := NewRateService(mockRates, testLogger())

		startRate := &models.FxRate{Date: start, USDBuy: dp("29.5"), USDSell: dp("30.0")}
		mockRates.On("RateOn", ctx, start).Return(startRate, nil)
		mockRates.On("RatesInRange", ctx, start, end).Return([]models.FxRate{
			*startRate,
			{Date: day(2025, time.April, 2), USDSell: dp("30.2")},
			{Date: day(2025, time.April, 15), USDBuy: dp("31.5"), USDSell: dp("32.0")},
		}, nil)

		points, err := service.Benchmark(ctx, models.CurrencyUSD, d("1000"), start, end)

		assert.NoError(t, err)
		// 1000 / 30.0 = 33.33333333 units. April 2 has no buy rate, so it
		// is skipped rather than zero-filled.
		assert.Len(t, points, 2)
		assert.Equal(t, start, points[0].Date)
		assert.True(t, points[0].Value.Equal(d("983.33")))
		assert.Equal(t, day(2025, time.April, 15), points[1].Date)
		assert.True(t, points[1].Value.Equal(d("1050.00")))
	})

	t.Run("eur positions read the eur columns", func(t *testing.T) {
		mockRates := new(MockFxRepository)
		service := NewRateService(mockRates, testLogger())

		startRate := &models.FxRate{Date: start, EURBuy: dp("32.0"), EURSell: dp("33.0"), USDSell: dp("30.0")}
		mockRates.On("RateOn", ctx, start).Return(startRate, nil)
		mockRates.On("RatesInRange", ctx, start, end).Return([]models.FxRate{*startRate}, nil)

		points, err := service.Benchmark(ctx, models.CurrencyEUR, d("990"), start, end)

		assert.NoError(t, err)
		assert.Len(t, points, 1)
		// 990 / 33.0 = 30 units valued at 32.0.
		assert.True(t, points[0].Value.Equal(d("960.00")))
	})

	t.Run("no rate row at the start date is NotFound", func(t *testing.T) {
		mockRates := new(MockFxRepository)
		service := NewRateService(mockRates, testLogger())

		mockRates.On("RateOn", ctx, start).Return(nil, nil)

		_, err := service.Benchmark(ctx, models.CurrencyUSD, d("1000"), start, end)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
	})

	t.Run("a missing or zero sell rate at the start date is InvalidState", func(t *testing.T) {
		mockRates := new(MockFxRepository)
		service := NewRateService(mockRates, testLogger())

		startRate := &models.FxRate{Date: start, USDBuy: dp("29.5")}
		mockRates.On("RateOn", ctx, start).Return(startRate, nil)

		_, err := service.Benchmark(ctx, models.CurrencyUSD, d("1000"), start, end)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidState))
	})

	t.Run("empty range yields an empty series, not an error", func(t *testing.T) {
		mockRates := new(MockFxRepository)
		service := NewRateService(mockRates, testLogger())

		startRate := &models.FxRate{Date: start, USDSell: dp("30.0")}
		mockRates.On("RateOn", ctx, start).Return(startRate, nil)
		mockRates.On("RatesInRange", ctx, start, end).Return([]models.FxRate{}, nil)

		points, err := service.Benchmark(ctx, models.CurrencyUSD, d("1000"), start, end)

		assert.NoError(t, err)
		assert.Empty(t, points)
	})

	t.Run("rejects unsupported currencies", func(t *testing.T) {
		service := NewRateService(new(MockFxRepository), testLogger())

		_, err := service.Benchmark(ctx, models.Currency("gbp"), d("1000"), start, end)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))
	})

	t.Run("rejects non-positive amounts and reversed ranges", func(t *testing.T) {
		service := NewRateService(new(MockFxRepository), testLogger())

		_, err := service.Benchmark(ctx, models.CurrencyUSD, d("0"), start, end)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))

		_, err = service.Benchmark(ctx, models.CurrencyUSD, d("1000"), end, start)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))
	})
}
