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

// DefaultTopMovers is how many funds a top-movers query returns when the
// caller does not ask for a specific count.
const DefaultTopMovers = 5

const (
	latestSnapshotTTL = 5 * time.Minute
	topMoversTTL      = 10 * time.Minute
)

var hundred = decimal.NewFromInt(100)

// CacheInterface is the slice of the redis client the services need.
type CacheInterface interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// FundService answers fund listing, history and ranking queries. It holds
// no state across calls; everything is computed from the price repository
// per invocation, so concurrent calls are independent.
type FundService struct {
	prices repositories.PriceRepository
	cache  CacheInterface
	logger *logrus.Logger
}

// NewFundService creates a fund analytics service. cache may be nil, in
// which case every call computes from the repository.
func NewFundService(prices repositories.PriceRepository, cache CacheInterface, logger *logrus.Logger) *FundService {
	return &FundService{
		prices: prices,
		cache:  cache,
		logger: logger,
	}
}

// GetAllLatest returns every fund joined with its most recent price row.
// Funds without any price history are omitted, not errors.
func (s *FundService) GetAllLatest(ctx context.Context) ([]models.FundSnapshot, error) {
	const cacheKey = "funds:latest"

	if s.cache != nil {
		var cached []models.FundSnapshot
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	snapshots, err := s.computeAllLatest(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, snapshots, latestSnapshotTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache latest fund snapshots")
		}
	}

	return snapshots, nil
}

func (s *FundService) computeAllLatest(ctx context.Context) ([]models.FundSnapshot, error) {
	funds, err := s.prices.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}

	latest, err := s.prices.LatestPriceForAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest prices: %w", err)
	}

	latestByCode := make(map[string]models.PricePoint, len(latest))
	for _, p := range latest {
		latestByCode[p.FundCode] = p
	}

	snapshots := make([]models.FundSnapshot, 0, len(funds))
	for _, fund := range funds {
		point, ok := latestByCode[fund.Code]
		if !ok {
			continue
		}
		snapshots = append(snapshots, models.NewFundSnapshot(fund, point))
	}

	return snapshots, nil
}

// GetLatestInPriceRange returns the subset of GetAllLatest whose latest
// price lies in [minPrice, maxPrice] inclusive.
func (s *FundService) GetLatestInPriceRange(ctx context.Context, minPrice, maxPrice decimal.Decimal) ([]models.FundSnapshot, error) {
	if minPrice.IsNegative() || maxPrice.IsNegative() {
		return nil, apierr.InvalidArgument("price bounds must not be negative")
	}
	if minPrice.GreaterThan(maxPrice) {
		return nil, apierr.InvalidArgument("minPrice %s exceeds maxPrice %s", minPrice, maxPrice)
	}

	all, err := s.GetAllLatest(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.FundSnapshot, 0, len(all))
	for _, snap := range all {
		if snap.Price.GreaterThanOrEqual(minPrice) && snap.Price.LessThanOrEqual(maxPrice) {
			result = append(result, snap)
		}
	}

	return result, nil
}

// GetHistory returns one fund's price rows ascending by date. Zero start or
// end bounds leave that side of the range open, so a single bound acts as a
// one-sided filter.
func (s *FundService) GetHistory(ctx context.Context, code string, start, end time.Time) ([]models.FundSnapshot, error) {
	fund, err := s.prices.FundByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fund by code: %w", err)
	}
	if fund == nil {
		return nil, apierr.NotFound("fund not found with code: %s", code)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return nil, apierr.InvalidArgument("endDate must not be before startDate")
	}

	points, err := s.prices.PricesInRange(ctx, code, start, end)
	if err != nil {
		return nil, fmt.Errorf("prices in range: %w", err)
	}

	result := make([]models.FundSnapshot, 0, len(points))
	for _, p := range points {
		result = append(result, models.NewFundSnapshot(*fund, p))
	}

	return result, nil
}

// GetPricesOnDate returns every fund's price row for one date.
func (s *FundService) GetPricesOnDate(ctx context.Context, date time.Time) ([]models.FundSnapshot, error) {
	points, err := s.prices.PricesOnDate(ctx, models.DateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("prices on date: %w", err)
	}

	funds, err := s.prices.ListFunds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list funds: %w", err)
	}

	fundByCode := make(map[string]models.Fund, len(funds))
	for _, f := range funds {
		fundByCode[f.Code] = f
	}

	result := make([]models.FundSnapshot, 0, len(points))
	for _, p := range points {
		fund, ok := fundByCode[p.FundCode]
		if !ok {
			continue
		}
		result = append(result, models.NewFundSnapshot(fund, p))
	}

	return result, nil
}

// GetTopMovers ranks the k funds with the largest positive percent price
// change between two exact dates. Only funds with a price row on both
// boundary dates participate; zero and negative movers are never reported.
// Candidates are kept in a bounded min-heap so the scan stays O(n log k)
// instead of sorting every fund.
func (s *FundService) GetTopMovers(ctx context.Context, start, end time.Time, k int) ([]models.FundSnapshot, error) {
	if k <= 0 {
		k = DefaultTopMovers
	}
	start = models.DateOnly(start)
	end = models.DateOnly(end)
	if end.Before(start) {
		return nil, apierr.InvalidArgument("endDate must not be before startDate")
	}

	cacheKey := fmt.Sprintf("funds:topmovers:%s:%s:%d", models.DateKey(start), models.DateKey(end), k)
	if s.cache != nil {
		var cached []models.FundSnapshot
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	candidates, err := s.prices.FundsWithPriceOnBothDates(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("funds with prices on both dates: %w", err)
	}

	best := newMoverHeap(k)

	for _, fund := range candidates {
		startPoint, err := s.prices.PriceOn(ctx, fund.Code, start)
		if err != nil {
			return nil, fmt.Errorf("price on %s for %s: %w", models.DateKey(start), fund.Code, err)
		}
		endPoint, err := s.prices.PriceOn(ctx, fund.Code, end)
		if err != nil {
			return nil, fmt.Errorf("price on %s for %s: %w", models.DateKey(end), fund.Code, err)
		}

		// The candidate query guarantees both rows, but the store can
		// change between the two reads.
		if startPoint == nil || endPoint == nil {
			continue
		}
		if startPoint.Price.IsZero() {
			continue
		}

		change := endPoint.Price.Sub(startPoint.Price).DivRound(startPoint.Price, 6).Mul(hundred)
		if change.LessThanOrEqual(decimal.Zero) {
			continue
		}

		best.Offer(mover{fund: fund, endPoint: *endPoint, change: change})
	}

	movers := best.SortedDescending()

	result := make([]models.FundSnapshot, 0, len(movers))
	for _, m := range movers {
		snap := models.NewFundSnapshot(m.fund, m.endPoint)
		change := m.change
		snap.Change = &change
		result = append(result, snap)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result, topMoversTTL); err != nil {
			s.logger.WithError(err).Warn("Failed to cache top movers")
		}
	}

	return result, nil
}
