package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fundfolio-api/internal/config"
	"fundfolio-api/internal/models"
	"fundfolio-api/internal/services"
)

// CacheWarmer periodically recomputes the hottest read paths so their
// results are already cached when requests arrive: the latest snapshot
// list and the default top-movers window.
type CacheWarmer struct {
	cron       *cron.Cron
	funds      *services.FundService
	windowDays int
	logger     *logrus.Logger
}

// NewCacheWarmer builds the warmer with the configured schedule and
// ranking window.
func NewCacheWarmer(cfg config.SchedulerConfig, funds *services.FundService, logger *logrus.Logger) (*CacheWarmer, error) {
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone %q: %w", cfg.TimeZone, err)
	}

	w := &CacheWarmer{
		cron:       cron.New(cron.WithLocation(location)),
		funds:      funds,
		windowDays: cfg.TopMoversWindowDays,
		logger:     logger,
	}

	if _, err := w.cron.AddFunc(cfg.WarmCacheInterval, w.warm); err != nil {
		return nil, fmt.Errorf("register cache warm task: %w", err)
	}

	return w, nil
}

// Start begins the schedule and runs one warm-up immediately.
func (w *CacheWarmer) Start() {
	go w.warm()
	w.cron.Start()
	w.logger.Info("Cache warmer started")
}

// Stop halts the schedule, waiting for a running job to finish.
func (w *CacheWarmer) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	w.logger.Info("Cache warmer stopped")
}

func (w *CacheWarmer) warm() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := w.funds.GetAllLatest(ctx); err != nil {
		w.logger.WithError(err).Warn("Failed to warm latest snapshot cache")
	}

	end := models.DateOnly(time.Now())
	start := end.AddDate(0, 0, -w.windowDays)
	if _, err := w.funds.GetTopMovers(ctx, start, end, services.DefaultTopMovers); err != nil {
		w.logger.WithError(err).Warn("Failed to warm top movers cache")
	}
}
