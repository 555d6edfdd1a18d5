package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/models"
	"fundfolio-api/internal/repositories"
)

// EventPublisher announces portfolio lifecycle changes to interested
// services. Publishing failures are logged, never surfaced to the caller.
type EventPublisher interface {
	PortfolioCreated(ctx context.Context, userID int64, portfolioID string) error
	PortfolioUpdated(ctx context.Context, userID int64, portfolioID string) error
	PortfolioDeleted(ctx context.Context, userID int64, portfolioID string) error
}

// PortfolioService turns requested allocations into fixed unit positions
// and values them against the price history. Like the other services it is
// stateless; the repository provides the only durable state.
type PortfolioService struct {
	portfolios repositories.PortfolioRepository
	prices     repositories.PriceRepository
	cache      CacheInterface
	publisher  EventPublisher
	logger     *logrus.Logger
}

// NewPortfolioService creates a portfolio valuation service. cache and
// publisher may be nil.
func NewPortfolioService(
	portfolios repositories.PortfolioRepository,
	prices repositories.PriceRepository,
	cache CacheInterface,
	publisher EventPublisher,
	logger *logrus.Logger,
) *PortfolioService {
	return &PortfolioService{
		portfolios: portfolios,
		prices:     prices,
		cache:      cache,
		publisher:  publisher,
		logger:     logger,
	}
}

// Create validates the request, converts every allocation into owned units
// at the creation-date price, and persists the portfolio atomically.
func (s *PortfolioService) Create(ctx context.Context, userID int64, req *models.PortfolioRequest) (*models.PortfolioView, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	allocations, err := s.buildAllocations(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	portfolio := &models.Portfolio{
		UserID:       userID,
		Name:         req.Name,
		TotalAmount:  req.TotalAmount,
		CreationDate: models.DateOnly(req.CreationDate),
		Allocations:  allocations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.portfolios.Create(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	s.invalidateUser(ctx, userID)
	if s.publisher != nil {
		if err := s.publisher.PortfolioCreated(ctx, userID, portfolio.ID.Hex()); err != nil {
			s.logger.WithError(err).Warn("Failed to publish portfolio created event")
		}
	}

	return s.toView(ctx, portfolio)
}

// Update replaces a portfolio's amount, name, creation date and whole
// allocation list, re-running the creation math against the new request.
// The portfolio keeps its identity and owner.
func (s *PortfolioService) Update(ctx context.Context, userID int64, portfolioID primitive.ObjectID, req *models.PortfolioRequest) (*models.PortfolioView, error) {
	portfolio, err := s.loadOwned(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	allocations, err := s.buildAllocations(ctx, req)
	if err != nil {
		return nil, err
	}

	portfolio.Name = req.Name
	portfolio.TotalAmount = req.TotalAmount
	portfolio.CreationDate = models.DateOnly(req.CreationDate)
	portfolio.Allocations = allocations
	portfolio.UpdatedAt = time.Now().UTC()

	if err := s.portfolios.Replace(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("replace portfolio: %w", err)
	}

	s.invalidateUser(ctx, userID)
	if s.publisher != nil {
		if err := s.publisher.PortfolioUpdated(ctx, userID, portfolio.ID.Hex()); err != nil {
			s.logger.WithError(err).Warn("Failed to publish portfolio updated event")
		}
	}

	return s.toView(ctx, portfolio)
}

// Delete removes a portfolio after checking it belongs to the caller.
func (s *PortfolioService) Delete(ctx context.Context, userID int64, portfolioID primitive.ObjectID) error {
	portfolio, err := s.loadOwned(ctx, userID, portfolioID)
	if err != nil {
		return err
	}

	if err := s.portfolios.Delete(ctx, portfolio.ID); err != nil {
		return fmt.Errorf("delete portfolio: %w", err)
	}

	s.invalidateUser(ctx, userID)
	if s.publisher != nil {
		if err := s.publisher.PortfolioDeleted(ctx, userID, portfolio.ID.Hex()); err != nil {
			s.logger.WithError(err).Warn("Failed to publish portfolio deleted event")
		}
	}

	return nil
}

// ListByUser returns every portfolio of a user valued at the latest
// available prices.
func (s *PortfolioService) ListByUser(ctx context.Context, userID int64) ([]models.PortfolioView, error) {
	cacheKey := fmt.Sprintf("portfolios:user:%d", userID)
	if s.cache != nil {
		var cached []models.PortfolioView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	portfolios, err := s.portfolios.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}

	views := make([]models.PortfolioView, 0, len(portfolios))
	for i := range portfolios {
		view, err := s.toView(ctx, &portfolios[i])
		if err != nil {
			return nil, err
		}
		views = append(views, *view)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, views, latestSnapshotTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache portfolio views")
		}
	}

	return views, nil
}

// BestPerforming returns the caller's portfolio with the highest percent
// change from invested amount to current value, nil when no portfolio
// qualifies.
func (s *PortfolioService) BestPerforming(ctx context.Context, userID int64) (*models.PortfolioView, error) {
	views, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var best *models.PortfolioView
	var bestChange decimal.Decimal

	for i := range views {
		view := &views[i]
		if view.TotalAmount.LessThanOrEqual(decimal.Zero) {
			continue
		}
		change := view.CurrentValue.Sub(view.TotalAmount).DivRound(view.TotalAmount, 6).Mul(hundred)
		if best == nil || change.GreaterThan(bestChange) {
			best = view
			bestChange = change
		}
	}

	return best, nil
}

// ValueOverDateRange computes a portfolio's value curve across a date range
// plus a per-fund change summary. Funds without price rows in the range are
// silently skipped; a date appears in the curve as soon as any fund
// published a price on it.
func (s *PortfolioService) ValueOverDateRange(ctx context.Context, userID int64, portfolioID primitive.ObjectID, start, end time.Time) (*models.ValueSeries, error) {
	start = models.DateOnly(start)
	end = models.DateOnly(end)
	if end.Before(start) {
		return nil, apierr.InvalidArgument("endDate must not be before startDate")
	}

	portfolio, err := s.loadOwned(ctx, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	series := &models.ValueSeries{
		Points:      []models.ValuePoint{},
		FundChanges: []models.FundChangeSummary{},
	}
	if len(portfolio.Allocations) == 0 {
		return series, nil
	}

	totalsByDate := make(map[string]decimal.Decimal)
	dateByKey := make(map[string]time.Time)

	for _, alloc := range portfolio.Allocations {
		if alloc.OwnedUnits.LessThanOrEqual(decimal.Zero) {
			continue
		}

		points, err := s.prices.PricesInRange(ctx, alloc.FundCode, start, end)
		if err != nil {
			return nil, fmt.Errorf("prices in range for %s: %w", alloc.FundCode, err)
		}
		if len(points) == 0 {
			// Sparse history is expected: the fund contributes neither to
			// the curve nor to the change summary.
			continue
		}

		for _, p := range points {
			contribution := alloc.OwnedUnits.Mul(p.Price).Round(2)
			key := models.DateKey(p.Date)
			totalsByDate[key] = totalsByDate[key].Add(contribution)
			dateByKey[key] = models.DateOnly(p.Date)
		}

		startPrice := points[0].Price
		endPrice := points[len(points)-1].Price
		if startPrice.IsZero() {
			continue
		}

		series.FundChanges = append(series.FundChanges, models.FundChangeSummary{
			FundCode:          alloc.FundCode,
			AllocationPercent: alloc.AllocationPercent,
			PercentChange:     endPrice.Sub(startPrice).DivRound(startPrice, 6).Mul(hundred),
		})
	}

	keys := make([]string, 0, len(totalsByDate))
	for key := range totalsByDate {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		series.Points = append(series.Points, models.ValuePoint{
			Date:       dateByKey[key],
			TotalValue: totalsByDate[key],
		})
	}

	return series, nil
}

// validateRequest enforces the allocation invariants: at least one
// allocation, positive amount, percentages summing to exactly 100.
func (s *PortfolioService) validateRequest(req *models.PortfolioRequest) error {
	if req == nil || len(req.Allocations) == 0 {
		return apierr.InvalidArgument("portfolio must have at least one fund allocation")
	}
	if req.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return apierr.InvalidArgument("total amount must be positive")
	}
	if req.CreationDate.IsZero() {
		return apierr.InvalidArgument("creation date is required")
	}

	for _, alloc := range req.Allocations {
		if alloc.AllocationPercent.LessThanOrEqual(decimal.Zero) || alloc.AllocationPercent.GreaterThan(hundred) {
			return apierr.InvalidArgument("allocation percent for %s must be in (0, 100]", alloc.FundCode)
		}
	}

	if sum := req.PercentSum(); !sum.Equal(hundred) {
		return apierr.InvalidArgument("sum of allocation percentages must be 100, got %s", sum)
	}

	return nil
}

// buildAllocations converts requested percentages into owned units using
// each fund's price on the creation date. Money is rounded to 6 digits
// before the unit division rounds to 4; both steps are half-up.
func (s *PortfolioService) buildAllocations(ctx context.Context, req *models.PortfolioRequest) ([]models.Allocation, error) {
	creationDate := models.DateOnly(req.CreationDate)
	allocations := make([]models.Allocation, 0, len(req.Allocations))

	for _, alloc := range req.Allocations {
		fund, err := s.prices.FundByCode(ctx, alloc.FundCode)
		if err != nil {
			return nil, fmt.Errorf("fund by code: %w", err)
		}
		if fund == nil {
			return nil, apierr.NotFound("fund not found with code: %s", alloc.FundCode)
		}

		point, err := s.prices.PriceOn(ctx, fund.Code, creationDate)
		if err != nil {
			return nil, fmt.Errorf("price on %s for %s: %w", models.DateKey(creationDate), fund.Code, err)
		}
		if point == nil {
			return nil, apierr.NotFound("no price data for fund %s on %s", fund.Code, models.DateKey(creationDate))
		}
		if point.Price.LessThanOrEqual(decimal.Zero) {
			return nil, apierr.InvalidArgument("invalid price for fund %s on %s", fund.Code, models.DateKey(creationDate))
		}

		allocationAmount := req.TotalAmount.Mul(alloc.AllocationPercent).DivRound(hundred, 6)
		ownedUnits := allocationAmount.DivRound(point.Price, 4)

		allocations = append(allocations, models.Allocation{
			FundCode:          fund.Code,
			AllocationPercent: alloc.AllocationPercent,
			OwnedUnits:        ownedUnits,
		})
	}

	return allocations, nil
}

// toView values the portfolio at each fund's latest price. A fund with no
// latest price contributes zero. Per-fund values are rounded to 2 digits
// before summing, so the total is a sum of already-rounded figures.
func (s *PortfolioService) toView(ctx context.Context, portfolio *models.Portfolio) (*models.PortfolioView, error) {
	view := &models.PortfolioView{
		ID:           portfolio.ID,
		UserID:       portfolio.UserID,
		Name:         portfolio.Name,
		TotalAmount:  portfolio.TotalAmount,
		CreationDate: portfolio.CreationDate,
		CurrentValue: decimal.Zero,
		Funds:        make([]models.PortfolioFundView, 0, len(portfolio.Allocations)),
	}

	for _, alloc := range portfolio.Allocations {
		fundView := models.PortfolioFundView{
			FundCode:          alloc.FundCode,
			AllocationPercent: alloc.AllocationPercent,
			OwnedUnits:        alloc.OwnedUnits,
			CurrentValue:      decimal.Zero,
		}

		fund, err := s.prices.FundByCode(ctx, alloc.FundCode)
		if err != nil {
			return nil, fmt.Errorf("fund by code: %w", err)
		}
		if fund != nil {
			fundView.FundName = fund.Name
		}

		latest, err := s.prices.LatestPriceFor(ctx, alloc.FundCode)
		if err != nil {
			return nil, fmt.Errorf("latest price for %s: %w", alloc.FundCode, err)
		}
		if latest != nil {
			fundView.CurrentValue = alloc.OwnedUnits.Mul(latest.Price).Round(2)
		}

		view.CurrentValue = view.CurrentValue.Add(fundView.CurrentValue)
		view.Funds = append(view.Funds, fundView)
	}

	return view, nil
}

// loadOwned fetches a portfolio and checks ownership. A portfolio that
// belongs to someone else is never silently reassigned.
func (s *PortfolioService) loadOwned(ctx context.Context, userID int64, portfolioID primitive.ObjectID) (*models.Portfolio, error) {
	portfolio, err := s.portfolios.GetByID(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}
	if portfolio == nil {
		return nil, apierr.NotFound("portfolio not found: %s", portfolioID.Hex())
	}
	if portfolio.UserID != userID {
		return nil, apierr.Forbidden("portfolio %s does not belong to user %d", portfolioID.Hex(), userID)
	}
	return portfolio, nil
}

func (s *PortfolioService) invalidateUser(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, fmt.Sprintf("portfolios:user:%d", userID)); err != nil {
		s.logger.WithError(err).Warn("Failed to invalidate portfolio cache")
	}
}
