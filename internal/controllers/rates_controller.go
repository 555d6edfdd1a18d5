package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/models"
	"fundfolio-api/internal/services"
)

// RatesController exposes the foreign-currency benchmark simulation.
type RatesController struct {
	rates  *services.RateService
	logger *logrus.Logger
}

func NewRatesController(rates *services.RateService, logger *logrus.Logger) *RatesController {
	return &RatesController{rates: rates, logger: logger}
}

func (c *RatesController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:currency/benchmark", c.Benchmark)
}

// Benchmark simulates converting an amount on the start date and tracks
// the position's value across the range.
func (c *RatesController) Benchmark(ctx *gin.Context) {
	amount, err := requireDecimalQuery(ctx, "amount")
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

	currency := models.Currency(ctx.Param("currency"))
	points, err := c.rates.Benchmark(ctx.Request.Context(), currency, amount, start, end)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, points)
}
