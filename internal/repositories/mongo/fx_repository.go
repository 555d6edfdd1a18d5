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

// MongoFxRepository implements FxRepository on the fx_rates collection.
type MongoFxRepository struct {
	collection *mongo.Collection
}

// NewFxRepository creates a MongoDB-backed exchange-rate repository.
func NewFxRepository(db *mongo.Database) repositories.FxRepository {
	return &MongoFxRepository{
		collection: db.Collection("fx_rates"),
	}
}

type fxRateDoc struct {
	Date      time.Time `bson:"date"`
	USDBuy    *string   `bson:"usd_buy,omitempty"`
	USDSell   *string   `bson:"usd_sell,omitempty"`
	EURBuy    *string   `bson:"eur_buy,omitempty"`
	EURSell   *string   `bson:"eur_sell,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d *fxRateDoc) toModel() (models.FxRate, error) {
	usdBuy, err := parseOptDecimal("usd_buy", d.USDBuy)
	if err != nil {
		return models.FxRate{}, err
	}
	usdSell, err := parseOptDecimal("usd_sell", d.USDSell)
	if err != nil {
		return models.FxRate{}, err
	}
	eurBuy, err := parseOptDecimal("eur_buy", d.EURBuy)
	if err != nil {
		return models.FxRate{}, err
	}
	eurSell, err := parseOptDecimal("eur_sell", d.EURSell)
	if err != nil {
		return models.FxRate{}, err
	}

	return models.FxRate{
		Date:      models.DateOnly(d.Date),
		USDBuy:    usdBuy,
		USDSell:   usdSell,
		EURBuy:    eurBuy,
		EURSell:   eurSell,
		CreatedAt: d.CreatedAt,
	}, nil
}

// RateOn retrieves the rate row for one date exactly, nil if no rates were
// published that day.
func (r *MongoFxRepository) RateOn(ctx context.Context, date time.Time) (*models.FxRate, error) {
	var doc fxRateDoc
	err := r.collection.FindOne(ctx, bson.M{"date": models.DateOnly(date)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rate on %s: %w", models.DateKey(date), err)
	}

	rate, err := doc.toModel()
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// RatesInRange retrieves rate rows in [start, end] ascending by date.
func (r *MongoFxRepository) RatesInRange(ctx context.Context, start, end time.Time) ([]models.FxRate, error) {
	filter := bson.M{"date": bson.M{
		"$gte": models.DateOnly(start),
		"$lte": models.DateOnly(end),
	}}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get rates in range: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []fxRateDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode rate rows: %w", err)
	}

	rates := make([]models.FxRate, 0, len(docs))
	for i := range docs {
		rate, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		rates = append(rates, rate)
	}
	return rates, nil
}
