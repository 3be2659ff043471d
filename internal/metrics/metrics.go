package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records account operation outcomes and HTTP request latency.
type Metrics struct {
	operations      metric.Int64Counter
	commissions     metric.Int64Counter
	requestDuration metric.Float64Histogram
}

func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("bank-account-service")

	operations, err := meter.Int64Counter(
		"account_operations_total",
		metric.WithDescription("Account operations by name and outcome"),
	)
	if err != nil {
		return nil, err
	}

	commissions, err := meter.Int64Counter(
		"account_commissions_total",
		metric.WithDescription("Commission checks by outcome"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		operations:      operations,
		commissions:     commissions,
		requestDuration: requestDuration,
	}, nil
}

func (m *Metrics) RecordOperation(ctx context.Context, operation, outcome string) {
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordCommission(ctx context.Context, outcome string) {
	m.commissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Middleware measures request latency per route and status.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		))
	}
}
