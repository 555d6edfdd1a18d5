package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments the API exports.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	valuationsTotal     *prometheus.CounterVec
	topMoversDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundfolio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundfolio_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		valuationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundfolio_portfolio_valuations_total",
				Help: "Portfolio valuation operations by outcome",
			},
			[]string{"operation", "status"},
		),
		topMoversDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fundfolio_top_movers_duration_seconds",
				Help:    "Time spent ranking top movers",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Handler records per-request counters and latency. FullPath keeps route
// templates instead of raw URLs so the label cardinality stays bounded.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		m.httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.httpRequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// RecordValuation counts one portfolio valuation operation.
func (m *Metrics) RecordValuation(operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.valuationsTotal.WithLabelValues(operation, status).Inc()
}

// ObserveTopMovers records one top-movers ranking duration.
func (m *Metrics) ObserveTopMovers(d time.Duration) {
	m.topMoversDuration.Observe(d.Seconds())
}
