package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RequestsTotal          metric.Int64Counter
	MutationsTotal         metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
	AuditWritesTotal       metric.Int64Counter
	AuditWriteErrorsTotal  metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments once, using the
// meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("RecruiterHub")
		var err error
		m := &AppMetrics{}

		m.RequestsTotal, err = meter.Int64Counter(
			"http_requests_total",
			metric.WithDescription("Total number of HTTP requests completed"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create http_requests_total: %v", err)
		}

		m.MutationsTotal, err = meter.Int64Counter(
			"resource_mutations_total",
			metric.WithDescription("Total number of successful resource mutations"),
			metric.WithUnit("{mutation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create resource_mutations_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		m.AuditWritesTotal, err = meter.Int64Counter(
			"audit_writes_total",
			metric.WithDescription("Total number of audit records written"),
			metric.WithUnit("{record}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create audit_writes_total: %v", err)
		}

		m.AuditWriteErrorsTotal, err = meter.Int64Counter(
			"audit_write_errors_total",
			metric.WithDescription("Total number of failed audit writes"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create audit_write_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the metric set, initializing it against the current global
// MeterProvider on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
