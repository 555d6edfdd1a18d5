package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/middleware"
	"fundfolio-api/internal/models"
	"fundfolio-api/internal/monitoring"
	"fundfolio-api/internal/services"
)

// PortfolioController exposes the portfolio operations over HTTP. Every
// route requires an authenticated user; the service layer enforces that a
// portfolio can only be touched by its owner.
type PortfolioController struct {
	portfolios *services.PortfolioService
	metrics    *monitoring.Metrics
	logger     *logrus.Logger
}

func NewPortfolioController(portfolios *services.PortfolioService, metrics *monitoring.Metrics, logger *logrus.Logger) *PortfolioController {
	return &PortfolioController{portfolios: portfolios, metrics: metrics, logger: logger}
}

func (c *PortfolioController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("", c.Create)
	r.PUT("/:portfolioId", c.Update)
	r.GET("/user/me", c.ListMine)
	r.GET("/user/me/best", c.BestPerforming)
	r.DELETE("/user/me/:portfolioId", c.Delete)
	r.GET("/user/me/:portfolioId/values", c.ValueOverDateRange)
}

// Create builds a new portfolio from the requested allocations.
func (c *PortfolioController) Create(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req models.PortfolioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(apierr.InvalidArgument("invalid portfolio payload: %v", err))
		return
	}

	view, err := c.portfolios.Create(ctx.Request.Context(), userID, &req)
	c.metrics.RecordValuation("create", err)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusCreated, view)
}

// Update replaces a portfolio's amount and allocation list.
func (c *PortfolioController) Update(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	portfolioID, err := parsePortfolioID(ctx)
	if err != nil {
		ctx.Error(err)
		return
	}

	var req models.PortfolioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(apierr.InvalidArgument("invalid portfolio payload: %v", err))
		return
	}

	view, err := c.portfolios.Update(ctx.Request.Context(), userID, portfolioID, &req)
	c.metrics.RecordValuation("update", err)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, view)
}

// Delete removes one of the caller's portfolios.
func (c *PortfolioController) Delete(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	portfolioID, err := parsePortfolioID(ctx)
	if err != nil {
		ctx.Error(err)
		return
	}

	if err := c.portfolios.Delete(ctx.Request.Context(), userID, portfolioID); err != nil {
		ctx.Error(err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ListMine returns the caller's portfolios valued at the latest prices.
func (c *PortfolioController) ListMine(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	views, err := c.portfolios.ListByUser(ctx.Request.Context(), userID)
	c.metrics.RecordValuation("list", err)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, views)
}

// BestPerforming returns the caller's portfolio with the highest gain.
func (c *PortfolioController) BestPerforming(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	best, err := c.portfolios.BestPerforming(ctx.Request.Context(), userID)
	if err != nil {
		ctx.Error(err)
		return
	}
	if best == nil {
		ctx.JSON(http.StatusOK, gin.H{"best": nil})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"best": best})
}

// ValueOverDateRange returns the portfolio's value curve across a range.
func (c *PortfolioController) ValueOverDateRange(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	portfolioID, err := parsePortfolioID(ctx)
	if err != nil {
		ctx.Error(err)
		return
	}

	start, err := requireDateQuery(ctx, "startDate")
	if err != nil {
		ctx.Error(err)
		return
	}
	end, err := requireDateQuery(ctx, "endDate")
	if err != nil {
		ctx.Error(err)
		return
	}

	series, err := c.portfolios.ValueOverDateRange(ctx.Request.Context(), userID, portfolioID, start, end)
	c.metrics.RecordValuation("values", err)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, series)
}

func parsePortfolioID(ctx *gin.Context) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(ctx.Param("portfolioId"))
	if err != nil {
		return primitive.NilObjectID, apierr.InvalidArgument("invalid portfolio id")
	}
	return id, nil
}
