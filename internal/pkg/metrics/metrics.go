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
		Namespace: "placesweep",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placesweep",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placesweep",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Sweep pipeline metrics
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "oracle",
		Name:      "calls_total",
		Help:      "Total upstream oracle calls by kind and outcome",
	}, []string{"oracle", "outcome"})

	OracleCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "placesweep",
		Subsystem: "oracle",
		Name:      "call_duration_seconds",
		Help:      "Upstream oracle call latency in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"oracle"})

	RegionsVisited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "regions_visited_total",
		Help:      "Total regions popped from the decomposition worklist",
	})

	RegionsSplit = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "regions_split_total",
		Help:      "Total regions split into quadrants",
	})

	RegionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "regions_dropped_total",
		Help:      "Total regions dropped at the worklist ceiling",
	})

	SweepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "runs_total",
		Help:      "Total sweep runs by outcome",
	}, []string{"outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "run_duration_seconds",
		Help:      "End-to-end sweep duration in seconds",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	PlacesHydrated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "places_hydrated_total",
		Help:      "Total place records successfully hydrated",
	})

	HydrationDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "hydration_dropped_total",
		Help:      "Total refs dropped during hydration (not found or failed)",
	})

	SnapshotsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "sweep",
		Name:      "snapshots_saved_total",
		Help:      "Total snapshots persisted",
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placesweep",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "placesweep",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placesweep",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placesweep",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "placesweep",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
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

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics refreshes pool gauges from pgxpool stats. It accepts
// the stat through a small interface so this package stays off pgx.
func UpdateDBPoolMetrics(stat interface{}) {
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
