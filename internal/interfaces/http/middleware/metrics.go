package middleware

import (
	"strconv"
	"time"

	"github.com/erp/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// httpMetrics holds the HTTP metric instruments
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(
		meter,
		"http_server_request_duration_seconds",
		"HTTP request latency distribution in seconds",
		"s",
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
	}, nil
}

// HTTPMetrics records request counts and latency per route. Unroutable
// requests are labeled with the raw path to keep 404 noise visible.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	instruments, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_code", strconv.Itoa(c.Writer.Status())),
		}

		ctx := c.Request.Context()
		instruments.requestTotal.Add(ctx, 1, attrs...)
		instruments.requestDuration.RecordDuration(ctx, time.Since(start), attrs...)
	}, nil
}
