package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fundfolio-api/internal/models"
)

// PortfolioRepository persists portfolios together with their allocation
// lists. Create and Replace must write the portfolio and all of its
// allocations as one atomic unit: either everything lands or nothing does.
type PortfolioRepository interface {
	// Create persists a new portfolio and assigns its ID.
	Create(ctx context.Context, portfolio *models.Portfolio) error

	// GetByID retrieves a portfolio, nil if the id is unknown.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Portfolio, error)

	// ListByUser retrieves all portfolios owned by a user.
	ListByUser(ctx context.Context, userID int64) ([]models.Portfolio, error)

	// Replace overwrites a portfolio's fields and its whole allocation
	// list, keeping the portfolio's identity.
	Replace(ctx context.Context, portfolio *models.Portfolio) error

	// Delete removes a portfolio and its allocations.
	Delete(ctx context.Context, id primitive.ObjectID) error
}
