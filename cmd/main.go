package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/config"
	"fundfolio-api/internal/controllers"
	"fundfolio-api/internal/messaging"
	"fundfolio-api/internal/middleware"
	"fundfolio-api/internal/monitoring"
	"fundfolio-api/internal/repositories/mongo"
	"fundfolio-api/internal/scheduler"
	"fundfolio-api/internal/services"
	"fundfolio-api/pkg/cache"
	"fundfolio-api/pkg/database"
	"fundfolio-api/pkg/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logger)

	db, err := database.NewMongoDB(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Disconnect()

	var redisClient *cache.RedisClient
	var cacheClient services.CacheInterface
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Cache)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, running without cache")
		} else {
			cacheClient = redisClient
			defer redisClient.Close()
		}
	}

	var publisher services.EventPublisher
	if cfg.RabbitMQ.Enabled {
		p, err := messaging.NewPortfolioPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.PortfolioExchange, log)
		if err != nil {
			log.WithError(err).Warn("RabbitMQ unavailable, portfolio events disabled")
		} else {
			publisher = p
			defer p.Close()
		}
	}

	priceRepo := mongo.NewPriceRepository(db.GetDatabase())
	fxRepo := mongo.NewFxRepository(db.GetDatabase())
	portfolioRepo := mongo.NewPortfolioRepository(db.GetDatabase())

	fundService := services.NewFundService(priceRepo, cacheClient, log)
	portfolioService := services.NewPortfolioService(portfolioRepo, priceRepo, cacheClient, publisher, log)
	rateService := services.NewRateService(fxRepo, log)

	metrics := monitoring.NewMetrics()

	var warmer *scheduler.CacheWarmer
	if cfg.Scheduler.Enabled && cacheClient != nil {
		warmer, err = scheduler.NewCacheWarmer(cfg.Scheduler, fundService, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to build cache warmer")
		}
		warmer.Start()
		defer warmer.Stop()
	}

	router := setupRouter(cfg, log, metrics,
		controllers.NewFundController(fundService, log),
		controllers.NewPortfolioController(portfolioService, metrics, log),
		controllers.NewRatesController(rateService, log),
		controllers.NewHealthController(db, redisClient),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Starting fundfolio API")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}

func setupRouter(
	cfg *config.Config,
	log *logrus.Logger,
	metrics *monitoring.Metrics,
	fundController *controllers.FundController,
	portfolioController *controllers.PortfolioController,
	ratesController *controllers.RatesController,
	healthController *controllers.HealthController,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	controllers.RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	router.Use(metrics.Handler())
	router.Use(middleware.ErrorHandler(log))

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit)
		router.Use(limiter.Limit())
	}

	router.GET("/health", healthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	api := router.Group("/api")
	fundController.RegisterRoutes(api.Group("/funds"))
	ratesController.RegisterRoutes(api.Group("/rates"))
	portfolioController.RegisterRoutes(api.Group("/portfolios", auth.RequireUser()))

	return router
}
