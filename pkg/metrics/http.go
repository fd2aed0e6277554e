package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Latency of allocation endpoints, by route
	AllocationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "floor_allocation_latency_seconds",
		Help:    "Latency of floor allocation handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// Requests served, by route and status code
	AllocationRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "floor_allocation_requests_total",
		Help: "Total number of floor allocation requests",
	}, []string{"route", "code"})
)

func Init() {
	prometheus.MustRegister(
		AllocationLatency,
		AllocationRequests,
	)
}

// Middleware records latency and status per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			AllocationLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
			AllocationRequests.WithLabelValues(route, strconv.Itoa(c.Response().Status)).Inc()
			return nil
		}
	}
}
