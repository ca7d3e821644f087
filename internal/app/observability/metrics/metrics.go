package metrics

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "loci-visits"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	HTTPRequestsTotal      metric.Int64Counter
	ScansTotal             metric.Int64Counter
	OracleRequestDuration  metric.Float64Histogram
	OracleErrorsTotal      metric.Int64Counter
	VisitsRecordedTotal    metric.Int64Counter
	RateLimitRejections    metric.Int64Counter
	DBQueryDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments against the global MeterProvider. Runs once.
func InitAppMetrics() {
	once.Do(func() {
		appMetrics = build(otel.GetMeterProvider().Meter(meterName))
	})
}

// Get returns the instruments, initialising them lazily so packages can be
// exercised in tests without a configured provider (the global default is a no-op).
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func build(meter metric.Meter) *AppMetrics {
	m := &AppMetrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests completed"),
		metric.WithUnit("{request}"),
	)
	logInstrumentError("http_requests_total", err)

	m.ScansTotal, err = meter.Int64Counter(
		"scans_total",
		metric.WithDescription("Verification scans by outcome and search mode"),
		metric.WithUnit("{scan}"),
	)
	logInstrumentError("scans_total", err)

	m.OracleRequestDuration, err = meter.Float64Histogram(
		"oracle_request_duration_seconds",
		metric.WithDescription("Duration of image oracle calls in seconds"),
		metric.WithUnit("s"),
	)
	logInstrumentError("oracle_request_duration_seconds", err)

	m.OracleErrorsTotal, err = meter.Int64Counter(
		"oracle_errors_total",
		metric.WithDescription("Image oracle failures by kind"),
		metric.WithUnit("{error}"),
	)
	logInstrumentError("oracle_errors_total", err)

	m.VisitsRecordedTotal, err = meter.Int64Counter(
		"visits_recorded_total",
		metric.WithDescription("Visits created by source"),
		metric.WithUnit("{visit}"),
	)
	logInstrumentError("visits_recorded_total", err)

	m.RateLimitRejections, err = meter.Int64Counter(
		"rate_limit_rejections_total",
		metric.WithDescription("Scans rejected by the daily quota"),
		metric.WithUnit("{scan}"),
	)
	logInstrumentError("rate_limit_rejections_total", err)

	m.DBQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	logInstrumentError("db_query_duration_seconds", err)

	return m
}

// Instrument constructors return a usable no-op alongside any error, so a
// failure is logged rather than fatal.
func logInstrumentError(name string, err error) {
	if err != nil {
		zap.L().Error("Metrics: failed to create instrument", zap.String("instrument", name), zap.Error(err))
	}
}
