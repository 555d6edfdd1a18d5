package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fundfolio-api/internal/models"
	"fundfolio-api/internal/repositories"
)

// MongoPortfolioRepository implements PortfolioRepository on the portfolios
// collection. Allocations are embedded in the portfolio document, so create
// and replace are single-document writes and therefore atomic.
type MongoPortfolioRepository struct {
	collection *mongo.Collection
}

// NewPortfolioRepository creates a MongoDB-backed portfolio repository.
func NewPortfolioRepository(db *mongo.Database) repositories.PortfolioRepository {
	return &MongoPortfolioRepository{
		collection: db.Collection("portfolios"),
	}
}

type portfolioDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	UserID       int64              `bson:"user_id"`
	Name         string             `bson:"name"`
	TotalAmount  string             `bson:"total_amount"`
	CreationDate time.Time          `bson:"creation_date"`
	Allocations  []allocationDoc    `bson:"allocations"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

type allocationDoc struct {
	FundCode          string `bson:"fund_code"`
	AllocationPercent string `bson:"allocation_percent"`
	OwnedUnits        string `bson:"owned_units"`
}

func toPortfolioDoc(p *models.Portfolio) *portfolioDoc {
	allocations := make([]allocationDoc, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		allocations = append(allocations, allocationDoc{
			FundCode:          a.FundCode,
			AllocationPercent: a.AllocationPercent.String(),
			OwnedUnits:        a.OwnedUnits.String(),
		})
	}
	return &portfolioDoc{
		ID:           p.ID,
		UserID:       p.UserID,
		Name:         p.Name,
		TotalAmount:  p.TotalAmount.String(),
		CreationDate: p.CreationDate,
		Allocations:  allocations,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d *portfolioDoc) toModel() (*models.Portfolio, error) {
	totalAmount, err := parseDecimal("total_amount", d.TotalAmount)
	if err != nil {
		return nil, err
	}

	allocations := make([]models.Allocation, 0, len(d.Allocations))
	for _, a := range d.Allocations {
		percent, err := parseDecimal("allocation_percent", a.AllocationPercent)
		if err != nil {
			return nil, err
		}
		units, err := parseDecimal("owned_units", a.OwnedUnits)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, models.Allocation{
			FundCode:          a.FundCode,
			AllocationPercent: percent,
			OwnedUnits:        units,
		})
	}

	return &models.Portfolio{
		ID:           d.ID,
		UserID:       d.UserID,
		Name:         d.Name,
		TotalAmount:  totalAmount,
		CreationDate: models.DateOnly(d.CreationDate),
		Allocations:  allocations,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// Create persists a new portfolio and assigns its ID.
func (r *MongoPortfolioRepository) Create(ctx context.Context, portfolio *models.Portfolio) error {
	if portfolio.ID.IsZero() {
		portfolio.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, toPortfolioDoc(portfolio)); err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}
	return nil
}

// GetByID retrieves a portfolio, nil if the id is unknown.
func (r *MongoPortfolioRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Portfolio, error) {
	var doc portfolioDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get portfolio %s: %w", id.Hex(), err)
	}
	return doc.toModel()
}

// ListByUser retrieves all portfolios owned by a user, oldest first.
func (r *MongoPortfolioRepository) ListByUser(ctx context.Context, userID int64) ([]models.Portfolio, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios for user %d: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var docs []portfolioDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode portfolios: %w", err)
	}

	portfolios := make([]models.Portfolio, 0, len(docs))
	for i := range docs {
		portfolio, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *portfolio)
	}
	return portfolios, nil
}

// Replace overwrites a portfolio's fields and its whole allocation list in
// one document write.
func (r *MongoPortfolioRepository) Replace(ctx context.Context, portfolio *models.Portfolio) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": portfolio.ID}, toPortfolioDoc(portfolio))
	if err != nil {
		return fmt.Errorf("failed to replace portfolio %s: %w", portfolio.ID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("portfolio %s not found", portfolio.ID.Hex())
	}
	return nil
}

// Delete removes a portfolio and its embedded allocations.
func (r *MongoPortfolioRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %s: %w", id.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("portfolio %s not found", id.Hex())
	}
	return nil
}
