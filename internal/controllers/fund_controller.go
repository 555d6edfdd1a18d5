package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/apierr"
	"fundfolio-api/internal/services"
)

const dateLayout = "2006-01-02"

// FundController exposes the fund analytics operations over HTTP.
type FundController struct {
	funds  *services.FundService
	logger *logrus.Logger
}

func NewFundController(funds *services.FundService, logger *logrus.Logger) *FundController {
	return &FundController{funds: funds, logger: logger}
}

func (c *FundController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", c.GetAllLatest)
	r.GET("/latest-by-price", c.GetLatestByPrice)
	r.GET("/top-movers", c.GetTopMovers)
	r.GET("/history", c.GetPricesOnDate)
	r.GET("/:code/history", c.GetHistory)
}

// GetAllLatest returns every fund at its latest price.
func (c *FundController) GetAllLatest(ctx *gin.Context) {
	snapshots, err := c.funds.GetAllLatest(ctx.Request.Context())
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, snapshots)
}

// GetLatestByPrice filters the latest snapshots by an inclusive price band.
func (c *FundController) GetLatestByPrice(ctx *gin.Context) {
	minPrice, err := requireDecimalQuery(ctx, "minPrice")
	if err != nil {
		ctx.Error(err)
		return
	}
	maxPrice, err := requireDecimalQuery(ctx, "maxPrice")
	if err != nil {
		ctx.Error(err)
		return
	}

	snapshots, err := c.funds.GetLatestInPriceRange(ctx.Request.Context(), minPrice, maxPrice)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, snapshots)
}

// GetTopMovers ranks funds by percent gain between two dates.
func (c *FundController) GetTopMovers(ctx *gin.Context) {
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

	limit := services.DefaultTopMovers
	if raw := ctx.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			ctx.Error(apierr.InvalidArgument("limit must be a positive integer"))
			return
		}
	}

	movers, err := c.funds.GetTopMovers(ctx.Request.Context(), start, end, limit)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, movers)
}

// GetPricesOnDate returns every fund's price row for one date.
func (c *FundController) GetPricesOnDate(ctx *gin.Context) {
	date, err := requireDateQuery(ctx, "date")
	if err != nil {
		ctx.Error(err)
		return
	}

	snapshots, err := c.funds.GetPricesOnDate(ctx.Request.Context(), date)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, snapshots)
}

// GetHistory returns one fund's price history, optionally bounded on
// either side.
func (c *FundController) GetHistory(ctx *gin.Context) {
	start, err := optionalDateQuery(ctx, "startDate")
	if err != nil {
		ctx.Error(err)
		return
	}
	end, err := optionalDateQuery(ctx, "endDate")
	if err != nil {
		ctx.Error(err)
		return
	}

	history, err := c.funds.GetHistory(ctx.Request.Context(), ctx.Param("code"), start, end)
	if err != nil {
		ctx.Error(err)
		return
	}
	ctx.JSON(http.StatusOK, history)
}

func requireDateQuery(ctx *gin.Context, name string) (time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return time.Time{}, apierr.InvalidArgument("%s is required", name)
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apierr.InvalidArgument("%s must be a date in YYYY-MM-DD form", name)
	}
	return date, nil
}

func optionalDateQuery(ctx *gin.Context, name string) (time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apierr.InvalidArgument("%s must be a date in YYYY-MM-DD form", name)
	}
	return date, nil
}

func requireDecimalQuery(ctx *gin.Context, name string) (decimal.Decimal, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return decimal.Decimal{}, apierr.InvalidArgument("%s is required", name)
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, apierr.InvalidArgument("%s must be a decimal number", name)
	}
	return value, nil
}
