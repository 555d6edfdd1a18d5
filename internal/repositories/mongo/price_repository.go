package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fundfolio-api/internal/models"
	"fundfolio-api/internal/repositories"
)

// MongoPriceRepository implements PriceRepository on the funds and
// fund_prices collections.
type MongoPriceRepository struct {
	funds  *mongo.Collection
	prices *mongo.Collection
}

// NewPriceRepository creates a MongoDB-backed price repository.
func NewPriceRepository(db *mongo.Database) repositories.PriceRepository {
	return &MongoPriceRepository{
		funds:  db.Collection("funds"),
		prices: db.Collection("fund_prices"),
	}
}

type fundDoc struct {
	Code      string    `bson:"code"`
	Name      string    `bson:"name"`
	Type      string    `bson:"type"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d *fundDoc) toModel() models.Fund {
	return models.Fund{
		Code:      d.Code,
		Name:      d.Name,
		Type:      models.FundType(d.Type),
		CreatedAt: d.CreatedAt,
	}
}

type priceDoc struct {
	FundCode         string    `bson:"fund_code"`
	Date             time.Time `bson:"date"`
	Price            string    `bson:"price"`
	CirculatingUnits *string   `bson:"circulating_units,omitempty"`
	InvestorCount    *int      `bson:"investor_count,omitempty"`
	TotalValue       *string   `bson:"total_value,omitempty"`
	CreatedAt        time.Time `bson:"created_at"`
}

func (d *priceDoc) toModel() (models.PricePoint, error) {
	price, err := parseDecimal("price", d.Price)
	if err != nil {
		return models.PricePoint{}, err
	}
	circulating, err := parseOptDecimal("circulating_units", d.CirculatingUnits)
	if err != nil {
		return models.PricePoint{}, err
	}
	totalValue, err := parseOptDecimal("total_value", d.TotalValue)
	if err != nil {
		return models.PricePoint{}, err
	}

	return models.PricePoint{
		FundCode:         d.FundCode,
		Date:             models.DateOnly(d.Date),
		Price:            price,
		CirculatingUnits: circulating,
		InvestorCount:    d.InvestorCount,
		TotalValue:       totalValue,
		CreatedAt:        d.CreatedAt,
	}, nil
}

// FundByCode retrieves one fund identity, nil if the code is unknown.
func (r *MongoPriceRepository) FundByCode(ctx context.Context, code string) (*models.Fund, error) {
	var doc fundDoc
	err := r.funds.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get fund %s: %w", code, err)
	}

	fund := doc.toModel()
	return &fund, nil
}

// ListFunds retrieves all known funds ordered by code.
func (r *MongoPriceRepository) ListFunds(ctx context.Context) ([]models.Fund, error) {
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := r.funds.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fundDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode funds: %w", err)
	}

	funds := make([]models.Fund, 0, len(docs))
	for i := range docs {
		funds = append(funds, docs[i].toModel())
	}
	return funds, nil
}

// LatestPriceFor retrieves the newest price row for one fund, nil if the
// fund has no price history.
func (r *MongoPriceRepository) LatestPriceFor(ctx context.Context, code string) (*models.PricePoint, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	var doc priceDoc
	err := r.prices.FindOne(ctx, bson.M{"fund_code": code}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest price for %s: %w", code, err)
	}

	point, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// LatestPriceForAll retrieves each fund's price row at that fund's own
// maximum date, in one aggregation pass.
func (r *MongoPriceRepository) LatestPriceForAll(ctx context.Context) ([]models.PricePoint, error) {
	pipeline := []bson.M{
		{"$sort": bson.D{{Key: "fund_code", Value: 1}, {Key: "date", Value: -1}}},
		{"$group": bson.M{
			"_id":    "$fund_code",
			"newest": bson.M{"$first": "$$ROOT"},
		}},
		{"$replaceRoot": bson.M{"newRoot": "$newest"}},
		{"$sort": bson.D{{Key: "fund_code", Value: 1}}},
	}

	cursor, err := r.prices.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate latest prices: %w", err)
	}
	defer cursor.Close(ctx)

	return r.decodePrices(ctx, cursor)
}

// PriceOn retrieves the price row for (fund, date) exactly.
func (r *MongoPriceRepository) PriceOn(ctx context.Context, code string, date time.Time) (*models.PricePoint, error) {
	var doc priceDoc
	err := r.prices.FindOne(ctx, bson.M{"fund_code": code, "date": models.DateOnly(date)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price for %s on %s: %w", code, models.DateKey(date), err)
	}

	point, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// PricesInRange retrieves one fund's price rows ascending by date. A zero
// start or end leaves that side of the range unbounded.
func (r *MongoPriceRepository) PricesInRange(ctx context.Context, code string, start, end time.Time) ([]models.PricePoint, error) {
	filter := bson.M{"fund_code": code}
	dateFilter := bson.M{}
	if !start.IsZero() {
		dateFilter["$gte"] = models.DateOnly(start)
	}
	if !end.IsZero() {
		dateFilter["$lte"] = models.DateOnly(end)
	}
	if len(dateFilter) > 0 {
		filter["date"] = dateFilter
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cursor, err := r.prices.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices in range for %s: %w", code, err)
	}
	defer cursor.Close(ctx)

	return r.decodePrices(ctx, cursor)
}

// PricesOnDate retrieves every fund's price row for a single date.
func (r *MongoPriceRepository) PricesOnDate(ctx context.Context, date time.Time) ([]models.PricePoint, error) {
	opts := options.Find().SetSort(bson.D{{Key: "fund_code", Value: 1}})
	cursor, err := r.prices.Find(ctx, bson.M{"date": models.DateOnly(date)}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices on %s: %w", models.DateKey(date), err)
	}
	defer cursor.Close(ctx)

	return r.decodePrices(ctx, cursor)
}

// FundsWithPriceOnBothDates retrieves funds that published a price on both
// dates exactly. The two distinct queries ride the (fund_code, date) index,
// the intersection happens here.
func (r *MongoPriceRepository) FundsWithPriceOnBothDates(ctx context.Context, start, end time.Time) ([]models.Fund, error) {
	onStart, err := r.prices.Distinct(ctx, "fund_code", bson.M{"date": models.DateOnly(start)})
	if err != nil {
		return nil, fmt.Errorf("failed to get funds priced on %s: %w", models.DateKey(start), err)
	}
	onEnd, err := r.prices.Distinct(ctx, "fund_code", bson.M{"date": models.DateOnly(end)})
	if err != nil {
		return nil, fmt.Errorf("failed to get funds priced on %s: %w", models.DateKey(end), err)
	}

	startSet := make(map[string]struct{}, len(onStart))
	for _, v := range onStart {
		if code, ok := v.(string); ok {
			startSet[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(onEnd))
	for _, v := range onEnd {
		code, ok := v.(string)
		if !ok {
			continue
		}
		if _, ok := startSet[code]; ok {
			codes = append(codes, code)
		}
	}
	if len(codes) == 0 {
		return []models.Fund{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	cursor, err := r.funds.Find(ctx, bson.M{"code": bson.M{"$in": codes}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate funds: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fundDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode candidate funds: %w", err)
	}

	funds := make([]models.Fund, 0, len(docs))
	for i := range docs {
		funds = append(funds, docs[i].toModel())
	}
	return funds, nil
}

func (r *MongoPriceRepository) decodePrices(ctx context.Context, cursor *mongo.Cursor) ([]models.PricePoint, error) {
	var docs []priceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode price rows: %w", err)
	}

	points := make([]models.PricePoint, 0, len(docs))
	for i := range docs {
		point, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}
