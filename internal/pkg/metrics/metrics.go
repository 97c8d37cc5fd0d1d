package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "busticket",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "busticket",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Booking metrics
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "tickets_issued_total",
		Help:      "Total tickets issued",
	})

	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "seat_conflicts_total",
		Help:      "Total ticket issuances rejected because the segment was taken",
	})

	TicketsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "tickets_cancelled_total",
		Help:      "Total tickets cancelled",
	})

	RefundAmount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "refund_amount_total",
		Help:      "Sum of refunds granted on cancellation",
	})

	HoldsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "holds_created_total",
		Help:      "Total seat holds created",
	})

	HoldsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "holds_expired_total",
		Help:      "Total seat holds expired",
	})

	NoShows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "booking",
		Name:      "no_shows_total",
		Help:      "Total tickets marked as no-show",
	})

	SweepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "busticket",
		Subsystem: "sweeper",
		Name:      "sweep_duration_seconds",
		Help:      "Duration of one sweep run",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"sweep"})

	SweepRowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "sweeper",
		Name:      "sweep_row_errors_total",
		Help:      "Rows a sweep failed to update and skipped",
	}, []string{"sweep"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "busticket",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"keyspace"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"keyspace"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "busticket",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "busticket",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "busticket",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})

	DBPoolEmptyAcquires = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "busticket",
		Subsystem: "db",
		Name:      "pool_empty_acquires_total",
		Help:      "Total times a connection had to be established when acquiring from pool",
	})
)

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	EmptyAcquireCount() int64
}

var lastEmptyAcquires int64

// UpdateDBPoolMetrics copies pool statistics into the db gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
	if n := s.EmptyAcquireCount(); n > lastEmptyAcquires {
		DBPoolEmptyAcquires.Add(float64(n - lastEmptyAcquires))
		lastEmptyAcquires = n
	}
}
