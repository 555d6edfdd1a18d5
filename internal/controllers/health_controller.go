package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fundfolio-api/pkg/cache"
	"fundfolio-api/pkg/database"
)

// HealthController answers liveness probes with the state of the backing
// stores.
type HealthController struct {
	db    *database.MongoDB
	redis *cache.RedisClient
}

func NewHealthController(db *database.MongoDB, redis *cache.RedisClient) *HealthController {
	return &HealthController{db: db, redis: redis}
}

func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"mongodb": "up"}

	if err := c.db.Ping(checkCtx); err != nil {
		checks["mongodb"] = "down"
		status = http.StatusServiceUnavailable
	}

	if c.redis != nil {
		checks["redis"] = "up"
		if err := c.redis.Ping(checkCtx); err != nil {
			// The API serves without its cache, so a dead redis degrades
			// rather than fails the probe.
			checks["redis"] = "down"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}

	ctx.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}
