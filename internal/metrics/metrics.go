package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	gatewayOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantmart",
			Subsystem: "gateway",
			Name:      "operations_total",
			Help:      "Total number of gateway round trips made by the stores.",
		},
		[]string{"store", "op", "result"},
	)

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "plantmart",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantmart",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "plantmart",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	classifierRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "plantmart",
			Subsystem: "classifier",
			Name:      "requests_total",
			Help:      "Total number of diagnosis requests, by outcome.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		gatewayOperations,
		httpInFlight,
		httpRequests,
		httpDuration,
		classifierRequests,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordGateway counts one gateway round trip.
func RecordGateway(store, op string, err error) {
	gatewayOperations.WithLabelValues(store, op, result(err)).Inc()
}

// RecordDiagnosis counts one classifier call. outcome is "ok", "rejected"
// (failed local validation) or "error".
func RecordDiagnosis(outcome string) {
	classifierRequests.WithLabelValues(outcome).Inc()
}

// Middleware records HTTP metrics for every request except /metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		// route pattern, not the raw path, keeps label cardinality bounded
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Method())

		httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		return err
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
