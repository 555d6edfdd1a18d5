package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/models"
)

type MockPortfolioRepository struct {
	mock.Mock
}

func (m *MockPortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) ListByUser(ctx context.Context, userID int64) ([]models.Portfolio, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Portfolio), args.Error(1)
}

func (m *MockPortfolioRepository) Replace(ctx context.Context, portfolio *models.Portfolio) error {
	args := m.Called(ctx, portfolio)
	return args.Error(0)
}

func (m *MockPortfolioRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PortfolioCreated(ctx context.Context, userID int64, portfolioID string) error {
	args := m.Called(ctx, userID, portfolioID)
	return args.Error(0)
}

func (m *MockEventPublisher) PortfolioUpdated(ctx context.Context, userID int64, portfolioID string) error {
	args := m.Called(ctx, userID, portfolioID)
	return args.Error(0)
}

func (m *MockEventPublisher) PortfolioDeleted(ctx context.Context, userID int64, portfolioID string) error {
	args := m.Called(ctx, userID, portfolioID)
	return args.Error(0)
}

func singleFundRequest(totalAmount, percent string, creationDate time.Time) *models.PortfolioRequest {
	return &models.PortfolioRequest{
		Name:         "Retirement",
		TotalAmount:  d(totalAmount),
		CreationDate: creationDate,
		Allocations: []models.AllocationRequest{
			{FundCode: "ALPHA", AllocationPercent: d(percent)},
		},
	}
}

func TestPortfolioService_Create(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	creationDate := day(2025, time.January, 15)

	t.Run("converts a full allocation into fixed units at the creation price", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		mockPublisher := new(MockEventPublisher)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, mockPublisher, testLogger())

		alpha := fund("ALPHA", "Alpha Growth")
		creationPrice := price("ALPHA", creationDate, "10.00")
		latestPrice := price("ALPHA", day(2025, time.March, 10), "12.00")

		mockPrices.On("FundByCode", ctx, "ALPHA").Return(&alpha, nil)
		mockPrices.On("PriceOn", ctx, "ALPHA", creationDate).Return(&creationPrice, nil)
		mockPrices.On("LatestPriceFor", ctx, "ALPHA").Return(&latestPrice, nil)
		mockPortfolios.On("Create", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Portfolio).ID = primitive.NewObjectID()
		})
		mockPublisher.On("PortfolioCreated", ctx, userID, mock.Anything).Return(nil)

		view, err := service.Create(ctx, userID, singleFundRequest("1000", "100", creationDate))

		assert.NoError(t, err)
		assert.Equal(t, userID, view.UserID)
		assert.Len(t, view.Funds, 1)
		assert.True(t, view.Funds[0].OwnedUnits.Equal(d("100.0000")))
		assert.True(t, view.Funds[0].CurrentValue.Equal(d("1200.00")))
		assert.True(t, view.CurrentValue.Equal(d("1200.00")))
		mockPortfolios.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("rejects percentages that do not sum to exactly 100", func(t *testing.T) {
		service := NewPortfolioService(new(MockPortfolioRepository), new(MockPriceRepository), nil, nil, testLogger())

		req := &models.PortfolioRequest{
			Name:         "Unbalanced",
			TotalAmount:  d("1000"),
			CreationDate: creationDate,
			Allocations: []models.AllocationRequest{
				{FundCode: "A", AllocationPercent: d("50")},
				{FundCode: "B", AllocationPercent: d("30")},
				{FundCode: "C", AllocationPercent: d("19")},
			},
		}

		_, err := service.Create(ctx, userID, req)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))
	})

	t.Run("accepts percentages summing to 100 across several funds", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, nil, testLogger())

		req := &models.PortfolioRequest{
			Name:         "Balanced",
			TotalAmount:  d("1000"),
			CreationDate: creationDate,
			Allocations: []models.AllocationRequest{
				{FundCode: "A", AllocationPercent: d("50")},
				{FundCode: "B", AllocationPercent: d("30")},
				{FundCode: "C", AllocationPercent: d("20")},
			},
		}

		for _, code := range []string{"A", "B", "C"} {
			f := fund(code, code)
			creationPrice := price(code, creationDate, "10.00")
			mockPrices.On("FundByCode", ctx, code).Return(&f, nil)
			mockPrices.On("PriceOn", ctx, code, creationDate).Return(&creationPrice, nil)
			mockPrices.On("LatestPriceFor", ctx, code).Return(&creationPrice, nil)
		}
		mockPortfolios.On("Create", ctx, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Portfolio).ID = primitive.NewObjectID()
		})

		view, err := service.Create(ctx, userID, req)

		assert.NoError(t, err)
		assert.Len(t, view.Funds, 3)
		assert.True(t, view.Funds[0].OwnedUnits.Equal(d("50.0000")))
		assert.True(t, view.Funds[1].OwnedUnits.Equal(d("30.0000")))
		assert.True(t, view.Funds[2].OwnedUnits.Equal(d("20.0000")))
	})

	t.Run("rejects a non-positive total amount", func(t *testing.T) {
		service := NewPortfolioService(new(MockPortfolioRepository), new(MockPriceRepository), nil, nil, testLogger())

		_, err := service.Create(ctx, userID, singleFundRequest("0", "100", creationDate))

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))
	})

	t.Run("unknown fund code is NotFound", func(t *testing.T) {
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(new(MockPortfolioRepository), mockPrices, nil, nil, testLogger())

		mockPrices.On("FundByCode", ctx, "ALPHA").Return(nil, nil)

		_, err := service.Create(ctx, userID, singleFundRequest("1000", "100", creationDate))

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
	})

	t.Run("missing price on the creation date is NotFound, not a zero position", func(t *testing.T) {
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(new(MockPortfolioRepository), mockPrices, nil, nil, testLogger())

		alpha := fund("ALPHA", "Alpha Growth")
		mockPrices.On("FundByCode", ctx, "ALPHA").Return(&alpha, nil)
		mockPrices.On("PriceOn", ctx, "ALPHA", creationDate).Return(nil, nil)

		_, err := service.Create(ctx, userID, singleFundRequest("1000", "100", creationDate))

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
	})
}

func TestPortfolioService_Update(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	creationDate := day(2025, time.January, 15)
	portfolioID := primitive.NewObjectID()

	t.Run("rebuilds the allocation list against the new request", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		mockPublisher := new(MockEventPublisher)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, mockPublisher, testLogger())

		existing := &models.Portfolio{
			ID:     portfolioID,
			UserID: userID,
			Name:   "Old Name",
			Allocations: []models.Allocation{
				{FundCode: "BETA", AllocationPercent: d("100"), OwnedUnits: d("10")},
			},
		}
		alpha := fund("ALPHA", "Alpha Growth")
		creationPrice := price("ALPHA", creationDate, "20.00")

		mockPortfolios.On("GetByID", ctx, portfolioID).Return(existing, nil)
		mockPrices.On("FundByCode", ctx, "ALPHA").Return(&alpha, nil)
		mockPrices.On("PriceOn", ctx, "ALPHA", creationDate).Return(&creationPrice, nil)
		mockPrices.On("LatestPriceFor", ctx, "ALPHA").Return(&creationPrice, nil)
		mockPortfolios.On("Replace", ctx, mock.Anything).Return(nil)
		mockPublisher.On("PortfolioUpdated", ctx, userID, portfolioID.Hex()).Return(nil)

		view, err := service.Update(ctx, userID, portfolioID, singleFundRequest("1000", "100", creationDate))

		assert.NoError(t, err)
		assert.Equal(t, portfolioID, view.ID)
		assert.Equal(t, "Retirement", view.Name)
		assert.Len(t, view.Funds, 1)
		assert.Equal(t, "ALPHA", view.Funds[0].FundCode)
		assert.True(t, view.Funds[0].OwnedUnits.Equal(d("50.0000")))
		mockPortfolios.AssertExpectations(t)
	})

	t.Run("someone else's portfolio is Forbidden", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		service := NewPortfolioService(mockPortfolios, new(MockPriceRepository), nil, nil, testLogger())

		existing := &models.Portfolio{ID: portfolioID, UserID: int64(7)}
		mockPortfolios.On("GetByID", ctx, portfolioID).Return(existing, nil)

		_, err := service.Update(ctx, userID, portfolioID, singleFundRequest("1000", "100", creationDate))

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
	})

	t.Run("unknown portfolio id is NotFound", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		service := NewPortfolioService(mockPortfolios, new(MockPriceRepository), nil, nil, testLogger())

		mockPortfolios.On("GetByID", ctx, portfolioID).Return(nil, nil)

		_, err := service.Update(ctx, userID, portfolioID, singleFundRequest("1000", "100", creationDate))

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
	})
}

func TestPortfolioService_Delete(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	portfolioID := primitive.NewObjectID()

	t.Run("removes an owned portfolio and publishes the event", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPublisher := new(MockEventPublisher)
		service := NewPortfolioService(mockPortfolios, new(MockPriceRepository), nil, mockPublisher, testLogger())

		existing := &models.Portfolio{ID: portfolioID, UserID: userID}
		mockPortfolios.On("GetByID", ctx, portfolioID).Return(existing, nil)
		mockPortfolios.On("Delete", ctx, portfolioID).Return(nil)
		mockPublisher.On("PortfolioDeleted", ctx, userID, portfolioID.Hex()).Return(nil)

		err := service.Delete(ctx, userID, portfolioID)

		assert.NoError(t, err)
		mockPortfolios.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("refuses to delete another user's portfolio", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		service := NewPortfolioService(mockPortfolios, new(MockPriceRepository), nil, nil, testLogger())

		existing := &models.Portfolio{ID: portfolioID, UserID: int64(7)}
		mockPortfolios.On("GetByID", ctx, portfolioID).Return(existing, nil)

		err := service.Delete(ctx, userID, portfolioID)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
		mockPortfolios.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestPortfolioService_ValueOverDateRange(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)
	portfolioID := primitive.NewObjectID()
	start := day(2025, time.February, 1)
	end := day(2025, time.February, 28)
	d1 := day(2025, time.February, 3)
	d2 := day(2025, time.February, 10)

	t.Run("aggregates per-date values over the union of published dates", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, nil, testLogger())

		portfolio := &models.Portfolio{
			ID:     portfolioID,
			UserID: userID,
			Allocations: []models.Allocation{
				{FundCode: "ALPHA", AllocationPercent: d("60"), OwnedUnits: d("10")},
				{FundCode: "BETA", AllocationPercent: d("30"), OwnedUnits: d("5")},
				{FundCode: "SPARSE", AllocationPercent: d("10"), OwnedUnits: d("2")},
			},
		}
		mockPortfolios.On("GetByID", ctx, portfolioID).Return(portfolio, nil)
		mockPrices.On("PricesInRange", ctx, "ALPHA", start, end).Return([]models.PricePoint{
			price("ALPHA", d1, "10.00"),
			price("ALPHA", d2, "12.00"),
		}, nil)
		mockPrices.On("PricesInRange", ctx, "BETA", start, end).Return([]models.PricePoint{
			price("BETA", d2, "8.00"),
		}, nil)
		mockPrices.On("PricesInRange", ctx, "SPARSE", start, end).Return([]models.PricePoint{}, nil)

		series, err := service.ValueOverDateRange(ctx, userID, portfolioID, start, end)

		assert.NoError(t, err)
		assert.Len(t, series.Points, 2)
		assert.Equal(t, d1, series.Points[0].Date)
		assert.True(t, series.Points[0].TotalValue.Equal(d("100.00")))
		assert.Equal(t, d2, series.Points[1].Date)
		assert.True(t, series.Points[1].TotalValue.Equal(d("160.00")))

		assert.Len(t, series.FundChanges, 2)
		assert.Equal(t, "ALPHA", series.FundChanges[0].FundCode)
		assert.True(t, series.FundChanges[0].PercentChange.Equal(d("20")))
		assert.Equal(t, "BETA", series.FundChanges[1].FundCode)
		assert.True(t, series.FundChanges[1].PercentChange.IsZero())
	})

	t.Run("rounds each contribution before summing", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, nil, testLogger())

		portfolio := &models.Portfolio{
			ID:     portfolioID,
			UserID: userID,
			Allocations: []models.Allocation{
				{FundCode: "ALPHA", AllocationPercent: d("50"), OwnedUnits: d("0.3333")},
				{FundCode: "BETA", AllocationPercent: d("50"), OwnedUnits: d("0.3333")},
			},
		}
		mockPortfolios.On("GetByID", ctx, portfolioID).Return(portfolio, nil)
		mockPrices.On("PricesInRange", ctx, "ALPHA", start, end).Return([]models.PricePoint{
			price("ALPHA", d1, "10.01"),
		}, nil)
		mockPrices.On("PricesInRange", ctx, "BETA", start, end).Return([]models.PricePoint{
			price("BETA", d1, "10.01"),
		}, nil)

		series, err := service.ValueOverDateRange(ctx, userID, portfolioID, start, end)

		assert.NoError(t, err)
		assert.Len(t, series.Points, 1)
		// 0.3333 * 10.01 = 3.336333, rounded to 3.34 per fund before the sum.
		assert.True(t, series.Points[0].TotalValue.Equal(d("6.68")))
	})

	t.Run("reversed range is InvalidArgument", func(t *testing.T) {
		service := NewPortfolioService(new(MockPortfolioRepository), new(MockPriceRepository), nil, nil, testLogger())

		_, err := service.ValueOverDateRange(ctx, userID, portfolioID, end, start)

		assert.Error(t, err)
		assert.True(t, apierr.IsKind(err, apierr.KindInvalidArgument))
	})
}

func TestPortfolioService_ListByUser(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)

	t.Run("a fund with no latest price contributes zero, not an error", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, nil, testLogger())

		mockPortfolios.On("ListByUser", ctx, userID).Return([]models.Portfolio{{
			ID:          primitive.NewObjectID(),
			UserID:      userID,
			TotalAmount: d("1000"),
			Allocations: []models.Allocation{
				{FundCode: "ALPHA", AllocationPercent: d("50"), OwnedUnits: d("100")},
				{FundCode: "GHOST", AllocationPercent: d("50"), OwnedUnits: d("100")},
			},
		}}, nil)

		alpha := fund("ALPHA", "Alpha Growth")
		latest := price("ALPHA", day(2025, time.March, 10), "12.00")
		mockPrices.On("FundByCode", ctx, "ALPHA").Return(&alpha, nil)
		mockPrices.On("LatestPriceFor", ctx, "ALPHA").Return(&latest, nil)
		mockPrices.On("FundByCode", ctx, "GHOST").Return(nil, nil)
		mockPrices.On("LatestPriceFor", ctx, "GHOST").Return(nil, nil)

		views, err := service.ListByUser(ctx, userID)

		assert.NoError(t, err)
		assert.Len(t, views, 1)
		assert.True(t, views[0].CurrentValue.Equal(d("1200.00")))
		assert.True(t, views[0].Funds[1].CurrentValue.IsZero())
	})
}

func TestPortfolioService_BestPerforming(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)

	t.Run("returns the portfolio with the highest percent gain", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		mockPrices := new(MockPriceRepository)
		service := NewPortfolioService(mockPortfolios, mockPrices, nil, nil, testLogger())

		winner := models.Portfolio{
			ID:          primitive.NewObjectID(),
			UserID:      userID,
			Name:        "Winner",
			TotalAmount: d("1000"),
			Allocations: []models.Allocation{
				{FundCode: "ALPHA", AllocationPercent: d("100"), OwnedUnits: d("100")},
			},
		}
		runnerUp := models.Portfolio{
			ID:          primitive.NewObjectID(),
			UserID:      userID,
			Name:        "Runner Up",
			TotalAmount: d("1000"),
			Allocations: []models.Allocation{
				{FundCode: "BETA", AllocationPercent: d("100"), OwnedUnits: d("100")},
			},
		}
		mockPortfolios.On("ListByUser", ctx, userID).Return([]models.Portfolio{runnerUp, winner}, nil)

		alpha := fund("ALPHA", "Alpha Growth")
		beta := fund("BETA", "Beta Income")
		alphaLatest := price("ALPHA", day(2025, time.March, 10), "12.00")
		betaLatest := price("BETA", day(2025, time.March, 10), "11.00")
		mockPrices.On("FundByCode", ctx, "ALPHA").Return(&alpha, nil)
		mockPrices.On("LatestPriceFor", ctx, "ALPHA").Return(&alphaLatest, nil)
		mockPrices.On("FundByCode", ctx, "BETA").Return(&beta, nil)
		mockPrices.On("LatestPriceFor", ctx, "BETA").Return(&betaLatest, nil)

		best, err := service.BestPerforming(ctx, userID)

		assert.NoError(t, err)
		assert.NotNil(t, best)
		assert.Equal(t, "Winner", best.Name)
	})

	t.Run("no portfolios means no best performer", func(t *testing.T) {
		mockPortfolios := new(MockPortfolioRepository)
		service := NewPortfolioService(mockPortfolios, new(MockPriceRepository), nil, nil, testLogger())

		mockPortfolios.On("ListByUser", ctx, userID).Return([]models.Portfolio{}, nil)

		best, err := service.BestPerforming(ctx, userID)

		assert.NoError(t, err)
		assert.Nil(t, best)
	})
}
