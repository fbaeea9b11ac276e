package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "giving_login_total",
			Help: "Total number of login attempts",
		},
	)

	// Church registration counter
	RegisterChurchCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "giving_register_church_total",
			Help: "Total number of church registrations",
		},
	)

	// Member self-registration counter
	RegisterMemberCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "giving_register_member_total",
			Help: "Total number of member self-registrations",
		},
	)

	// Member operation counter
	MemberOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_member_operations_total",
			Help: "Total number of member directory operations",
		},
		[]string{"operation"}, // "create", "provision", "list", "update", "delete", "import"
	)

	// Bulk import row counter
	ImportRowCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_import_rows_total",
			Help: "Total number of bulk import rows by outcome",
		},
		[]string{"outcome"}, // "success", "failure"
	)

	// Transaction operation counter
	TransactionOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_transaction_operations_total",
			Help: "Total number of ledger operations",
		},
		[]string{"operation"}, // "record", "list", "aggregate"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "invalid_credentials", "invalid_token", "email_in_use" etc.
	)

	// Validation error counter
	ValidationErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giving_validation_errors_total",
			Help: "Total number of request validation errors",
		},
		[]string{"field"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giving_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Database operation duration
	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giving_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	// Active tokens
	ActiveTokensGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "giving_active_tokens",
			Help: "Number of currently active authentication tokens",
		},
	)

	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "giving_info",
			Help: "Information about the giving service",
		},
		[]string{"version"},
	)

	// Registered churches
	RegisteredChurchesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "giving_registered_churches",
			Help: "Number of registered churches",
		},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterChurchCounter)
	prometheus.MustRegister(RegisterMemberCounter)
	prometheus.MustRegister(MemberOperationCounter)
	prometheus.MustRegister(ImportRowCounter)
	prometheus.MustRegister(TransactionOperationCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(ValidationErrorCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	// Register gauges
	prometheus.MustRegister(ActiveTokensGauge)
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(RegisteredChurchesGauge)

	// Set initial service info
	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler
			err := next(c)

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}

// IncreaseActiveTokens increments the active tokens gauge
func IncreaseActiveTokens() {
	ActiveTokensGauge.Inc()
}

// DecreaseActiveTokens decrements the active tokens gauge
func DecreaseActiveTokens() {
	ActiveTokensGauge.Dec()
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordValidationError records a request validation error by field
func RecordValidationError(field string) {
	ValidationErrorCounter.With(prometheus.Labels{"field": field}).Inc()
}

// RecordMemberOperation records a member directory operation
func RecordMemberOperation(operation string) {
	MemberOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// RecordImportRow records a bulk import row outcome
func RecordImportRow(outcome string) {
	ImportRowCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordTransactionOperation records a ledger operation
func RecordTransactionOperation(operation string) {
	TransactionOperationCounter.With(prometheus.Labels{"operation": operation}).Inc()
}
